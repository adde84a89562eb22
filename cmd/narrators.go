package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"recital/assets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// narratorsCmd lists the narrator catalog
var narratorsCmd = &cobra.Command{
	Use:   "narrators",
	Short: "List available narrators",
	Long:  "List the narrators recital knows about and whether they support chapter audio with verse timings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		current := viper.GetString("narrator")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODE\t")
		for _, n := range catalogNarrators() {
			mode := "verse"
			if n.SupportsTiming() {
				mode = "chapter"
			}
			marker := ""
			if n.ID == current {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Name, mode, marker)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(narratorsCmd)
}

func catalogNarrators() []assets.Narrator {
	return assets.GetCatalog().All()
}

func lookupNarrator(id string) (assets.Narrator, bool) {
	return assets.GetCatalog().Lookup(id)
}
