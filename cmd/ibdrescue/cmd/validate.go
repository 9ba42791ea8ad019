package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dbrescue/go-ibdrescue/rebuild"
)

// validateCmd represents the validate-remap command
var validateCmd = &cobra.Command{
	Use:   "validate-remap <file.ibd>",
	Short: "Dry-run the index-id remap a rebuild would perform",
	Args:  cobra.ExactArgs(1),
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

		report, err := rebuild.New(reader, opts).ValidateRemap()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE ID\tTARGET ID")
		for _, id := range report.SourceIndexIDs {
			fmt.Fprintf(w, "%d\t%d\n", id, report.IndexIDMap[id])
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("sdi pages: %v\n", report.SDIPages)
		return nil
	},
}

func init() {
	validateCmd.Flags().String("sql", "", "CREATE TABLE file describing the target table")
	validateCmd.Flags().String("sdi-file", "", "SDI export file describing the target table")
	validateCmd.Flags().String("map", "", "Explicit index-id map: old=new[,old=new...]")
	validateCmd.Flags().Uint32("root-override", 0, "Rewrite the retained root page in SDI")
	validateCmd.Flags().Uint32("space-override", 0, "Rewrite the space id everywhere")
	validateCmd.Flags().String("checksum", "crc32c", "Checksum to stamp: crc32c, innodb, none")
	validateCmd.Flags().String("metadata", "", "Write a JSON column/index summary to this path")
	rootCmd.AddCommand(validateCmd)
}
