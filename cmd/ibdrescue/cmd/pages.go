package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
)

// pagesCmd represents the pages command
var pagesCmd = &cobra.Command{
	Use:   "pages <file.ibd>",
	Short: "Survey every page: type, level, index id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, reader, err := openTablespace(cmd, args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		names := format.PageTypeNames()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PAGE\tTYPE\tLEVEL\tINDEX ID\tRECORDS")
		count := reader.PageCount()
		for pageNo := uint32(0); pageNo < count; pageNo++ {
			ip, err := reader.ReadPage(pageNo)
			if err != nil {
				fmt.Fprintf(w, "%d\t<unreadable: %v>\t\t\t\n", pageNo, err)
				continue
			}
			name, ok := names[ip.PageType()]
			if !ok {
				name = fmt.Sprintf("UNKNOWN(%d)", ip.PageType())
			}
			switch ip.PageType() {
			case format.PageTypeIndex, format.PageTypeSDI, format.PageTypeRtree:
				if xp, err := page.ParseIndexPage(ip); err == nil {
					fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n",
						pageNo, name, xp.Hdr.PageLevel, xp.Hdr.IndexID, xp.Hdr.NumUserRecs)
					continue
				}
			}
			fmt.Fprintf(w, "%d\t%s\t\t\t\n", pageNo, name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}
