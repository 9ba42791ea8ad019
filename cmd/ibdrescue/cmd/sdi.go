package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	ibdrescue "github.com/dbrescue/go-ibdrescue"
	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
)

// sdiCmd represents the sdi command
var sdiCmd = &cobra.Command{
	Use:   "sdi <file.ibd>",
	Short: "Extract the embedded schema-description JSON documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		f, reader, err := openTablespace(cmd, args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		docs, err := extractSDIDocs(reader, log)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("no schema-description records found")
		}
		for _, doc := range docs {
			if _, err := os.Stdout.Write(append(doc, '\n')); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sdiCmd)
}

// extractSDIDocs inflates every table document embedded in the file's
// SDI pages, resolving overflow chains where needed.
func extractSDIDocs(reader *ibdrescue.PageReader, log *logrus.Logger) ([][]byte, error) {
	var docs [][]byte
	count := reader.PageCount()
	for pageNo := uint32(0); pageNo < count; pageNo++ {
		ip, err := reader.ReadPage(pageNo)
		if err != nil || ip.PageType() != format.PageTypeSDI {
			continue
		}
		xp, err := page.ParseIndexPage(ip)
		if err != nil || !xp.IsLeaf() {
			continue
		}
		recs := page.ParseSDIRecords(xp, func(pos int, err error) {
			log.WithFields(logrus.Fields{"page": pageNo, "pos": pos, "err": err}).
				Warn("skipping malformed sdi record")
		})
		for _, rec := range recs {
			if rec.Type != page.SDITypeTable || rec.Deleted {
				continue
			}
			payload := rec.Payload
			if rec.Extern {
				payload, err = readSDIChain(reader, payload)
				if err != nil {
					log.WithFields(logrus.Fields{"page": pageNo, "err": err}).
						Warn("skipping sdi record with broken chain")
					continue
				}
			}
			doc, err := inflateSDIPayload(payload, rec.UncompLen)
			if err != nil {
				log.WithFields(logrus.Fields{"page": pageNo, "err": err}).
					Warn("skipping sdi record that fails to inflate")
				continue
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// readSDIChain resolves an extern SDI payload: the record stores a
// 20-byte pointer to an SDI BLOB chain.
func readSDIChain(reader *ibdrescue.PageReader, ptr []byte) ([]byte, error) {
	pageNo, err := format.Be32(ptr, 4)
	if err != nil {
		return nil, err
	}
	length, err := format.Be64(ptr, 12)
	if err != nil {
		return nil, err
	}
	var out []byte
	for {
		ip, err := reader.ReadPage(pageNo)
		if err != nil {
			return nil, err
		}
		bp, err := page.ParseBlobPage(ip)
		if err != nil {
			return nil, err
		}
		out = append(out, bp.Data...)
		if bp.NextPage == nil || uint64(len(out)) >= length {
			break
		}
		pageNo = *bp.NextPage
	}
	if uint64(len(out)) > length {
		out = out[:length]
	}
	return out, nil
}

func inflateSDIPayload(payload []byte, uncompLen uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open sdi stream: %w", format.ErrDecompressionFailure)
	}
	defer zr.Close()
	out := make([]byte, uncompLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("inflate sdi document: %w", format.ErrDecompressionFailure)
	}
	return out, nil
}
