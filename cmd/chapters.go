package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"recital/assets"
	"recital/content"
	"recital/store"

	"github.com/spf13/cobra"
)

// chaptersCmd prints the table of contents
var chaptersCmd = &cobra.Command{
	Use:   "chapters [name]",
	Short: "List chapters",
	Long:  "List all chapters, or the chapters matching a number or name.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := loadConfig(false)
		if err != nil {
			return err
		}
		defer closer.Close()

		catalog := assets.GetCatalog()
		client := content.NewClient(content.ClientConfig{
			APIBase:     cfg.Content.APIBase,
			AudioBase:   cfg.Content.AudioBase,
			Bitrate:     cfg.Content.Bitrate,
			TimingBase:  cfg.Content.TimingBase,
			TextEdition: cfg.Content.TextEdition,
			Translation: cfg.Content.Translation,
			Timeout:     cfg.Content.Timeout,
		}, catalog)

		var backing content.Backing
		if !cfg.Cache.Disabled {
			db, err := store.Open(cfg.Cache.Dir)
			if err != nil {
				return fmt.Errorf("failed to open cache: %w", err)
			}
			defer db.Close()
			backing = db
		}
		cache := content.NewCache(client, backing, catalog)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		chapters, err := cache.ChapterList(ctx)
		if err != nil {
			return fmt.Errorf("failed to list chapters: %w", err)
		}

		if len(args) == 1 {
			c, ok := content.FindChapter(chapters, args[0])
			if !ok {
				return fmt.Errorf("%q: %w", args[0], content.ErrNotFound)
			}
			chapters = []content.Chapter{c}
		}

		return printChapters(chapters)
	},
}

func init() {
	rootCmd.AddCommand(chaptersCmd)
}

func printChapters(chapters []content.Chapter) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tMEANING\tVERSES")
	for _, c := range chapters {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.Number, c.DisplayName, c.Meaning, c.VerseCount)
	}
	return w.Flush()
}
