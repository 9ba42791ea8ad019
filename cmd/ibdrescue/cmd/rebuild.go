package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dbrescue/go-ibdrescue/rebuild"
)

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild <file.ibd> <out.ibd>",
	Short: "Rebuild the tablespace with remapped index ids",
	Long: `Rebuild a tablespace into a plaintext uncompressed image whose
schema-description records carry the target index ids, ready to swap
under a freshly created table.

The mapping comes from --map ("old=new,old=new"), or positionally from
the target schema's ids (--sql / --sdi-file), or defaults to identity.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		f, reader, err := openTablespace(cmd, args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		opts, err := rebuildOptions(cmd, log)
		if err != nil {
			return err
		}

		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer out.Close()

		rb := rebuild.New(reader, opts)
		if err := rb.Run(out); err != nil {
			return err
		}
		if err := out.Sync(); err != nil {
			return err
		}
		fmt.Printf("rebuilt %d pages\n", rb.Map().TotalPages())
		return nil
	},
}

func init() {
	rebuildCmd.Flags().String("sql", "", "CREATE TABLE file describing the target table")
	rebuildCmd.Flags().String("sdi-file", "", "SDI export file describing the target table")
	rebuildCmd.Flags().String("map", "", "Explicit index-id map: old=new[,old=new...]")
	rebuildCmd.Flags().Uint32("root-override", 0, "Rewrite the retained root page in SDI")
	rebuildCmd.Flags().Uint32("space-override", 0, "Rewrite the space id everywhere")
	rebuildCmd.Flags().String("checksum", "crc32c", "Checksum to stamp: crc32c, innodb, none")
	rebuildCmd.Flags().String("metadata", "", "Write a JSON column/index summary to this path")
	rootCmd.AddCommand(rebuildCmd)
}

// rebuildOptions assembles rebuild.Options from the command flags,
// shared by rebuild and validate-remap.
func rebuildOptions(cmd *cobra.Command, log *logrus.Logger) (rebuild.Options, error) {
	opts := rebuild.Options{Logger: log}

	alg, err := checksumAlgFromFlag(cmd)
	if err != nil {
		return opts, err
	}
	opts.Checksum = alg

	table, err := loadSchema(cmd)
	if err != nil {
		return opts, err
	}
	opts.TargetTable = table

	mapSpec, _ := cmd.Flags().GetString("map")
	if mapSpec != "" {
		opts.IndexIDMap, err = parseIDMap(mapSpec)
		if err != nil {
			return opts, err
		}
	}

	if cmd.Flags().Changed("root-override") {
		v, _ := cmd.Flags().GetUint32("root-override")
		opts.RootOverride = &v
	}
	if cmd.Flags().Changed("space-override") {
		v, _ := cmd.Flags().GetUint32("space-override")
		opts.SpaceOverride = &v
	}
	opts.MetadataPath, _ = cmd.Flags().GetString("metadata")
	return opts, nil
}

// parseIDMap decodes "old=new[,old=new...]".
func parseIDMap(spec string) (map[uint64]uint64, error) {
	out := make(map[uint64]uint64)
	for _, pair := range strings.Split(spec, ",") {
		oldS, newS, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("bad map entry %q, want old=new", pair)
		}
		oldID, err := strconv.ParseUint(oldS, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad source id %q: %w", oldS, err)
		}
		newID, err := strconv.ParseUint(newS, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad target id %q: %w", newS, err)
		}
		out[oldID] = newID
	}
	return out, nil
}
