package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file.ibd>",
	Short: "Show tablespace parameters from page 0",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, reader, err := openTablespace(cmd, args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		fmt.Print(reader.Params().String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
