package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	ibdrescue "github.com/dbrescue/go-ibdrescue"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ibdrescue",
	Short: "Offline InnoDB tablespace interpreter and rebuilder",
	Long: `ibdrescue reads single-table InnoDB tablespace files without a
running server: it decrypts and decompresses pages, extracts rows and
schema descriptions, and rebuilds damaged or foreign files into clean
importable tablespaces.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("key-file", "", "Path to a hex-encoded master key for encrypted tablespaces")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable diagnostic logging")
}

// newLogger builds the diagnostics logger per the verbose flag.
func newLogger(cmd *cobra.Command) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// readMasterKey loads and decodes the master key file, if given.
func readMasterKey(cmd *cobra.Command) ([]byte, error) {
	path, _ := cmd.Flags().GetString("key-file")
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	return key, nil
}

// openTablespace opens the .ibd file named by the first positional
// argument. The caller closes the returned file.
func openTablespace(cmd *cobra.Command, path string) (*os.File, *ibdrescue.PageReader, error) {
	key, err := readMasterKey(cmd)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	reader, err := ibdrescue.OpenTablespace(f, ibdrescue.ReaderOptions{MasterKey: key})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, reader, nil
}

// loadSchema builds a TableDef from either a CREATE TABLE file or an
// SDI export file, whichever flag is set.
func loadSchema(cmd *cobra.Command) (*schema.TableDef, error) {
	sqlFile, _ := cmd.Flags().GetString("sql")
	sdiFile, _ := cmd.Flags().GetString("sdi-file")
	switch {
	case sqlFile != "" && sdiFile != "":
		return nil, fmt.Errorf("--sql and --sdi-file are mutually exclusive")
	case sqlFile != "":
		return schema.ParseTableDefFromSQLFile(sqlFile)
	case sdiFile != "":
		return schema.NewTableDefFromSDIFile(sdiFile)
	}
	return nil, nil
}
