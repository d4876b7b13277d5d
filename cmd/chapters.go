package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dvdmirror/internal/chapter"
	"dvdmirror/internal/discio"
	"dvdmirror/internal/feature"
	"dvdmirror/internal/mirrorcfg"
	"dvdmirror/internal/output"
)

var (
	chaptersTarget string
	chaptersTitle  int
	chaptersFrom   int
	chaptersTo     int
)

var chaptersCmd = &cobra.Command{
	Use:                   "chapters --target DIR --title T --from A --to B SOURCE",
	Short:                 "Mirror a chapter range from one title",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		cfg, err := buildConfig(source)
		if err != nil {
			return err
		}

		disc, err := openSource(source)
		if err != nil {
			reportErr(err)
			return nil
		}
		defer disc.Close()

		titles, err := disc.Titles()
		if err != nil {
			reportErr(err)
			return nil
		}

		wantTitle := chaptersTitle
		if wantTitle == 0 {
			wantTitle, err = defaultTitle(disc, titles)
			if err != nil {
				reportErr(err)
				return nil
			}
		}

		var title *discio.TitleDescriptor
		for i := range titles {
			if titles[i].Title == wantTitle {
				title = &titles[i]
				break
			}
		}
		if title == nil {
			reportErr(fmt.Errorf("no such title %d", wantTitle))
			return nil
		}

		inv, err := disc.Inventory(title.TitleSet)
		if err != nil {
			reportErr(err)
			return nil
		}

		root := output.Root(chaptersTarget, cfg.TitleName)
		if err := ensureRoot(root); err != nil {
			reportErr(err)
			return nil
		}
		p := newProgress()
		label := fmt.Sprintf("title %d chapters %d-%d", wantTitle, chaptersFrom, chaptersTo)

		err = chapter.Extract(disc, *title, inv, chaptersFrom, chaptersTo, root, cfg, p.Func(label, 0))
		p.Wait()
		if err != nil {
			reportErr(err)
			return nil
		}

		fmt.Printf("title %d: chapters %d-%d mirrored\n", wantTitle, chaptersFrom, chaptersTo)
		return nil
	},
}

// defaultTitle implements the "no title specified" fallback: the title
// within the guessed main-feature title set with the highest chapter count.
func defaultTitle(disc discio.Disc, titles []discio.TitleDescriptor) (int, error) {
	count, err := disc.TitleSetCount()
	if err != nil {
		return 0, err
	}
	inventories := make([]discio.TitleSetInventory, 0, count)
	for ts := 1; ts < count; ts++ {
		inv, err := disc.Inventory(ts)
		if err != nil {
			return 0, err
		}
		inventories = append(inventories, inv)
	}

	signals := feature.BuildSignals(titles, inventories)
	result := feature.Guess(signals, mirrorcfg.AspectAny)
	if result.TitleSet == 0 {
		return 0, fmt.Errorf("no title sets found to guess a main feature from")
	}

	best := 0
	bestChapters := -1
	for _, t := range titles {
		if t.TitleSet == result.TitleSet && t.ChapterCount > bestChapters {
			best = t.Title
			bestChapters = t.ChapterCount
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("main feature title set %d has no titles", result.TitleSet)
	}
	return best, nil
}

func init() {
	chaptersCmd.Flags().StringVar(&chaptersTarget, "target", "", "destination directory")
	chaptersCmd.Flags().IntVar(&chaptersTitle, "title", 0, "title number; defaults to the highest-chapter-count title in the guessed main feature")
	chaptersCmd.Flags().IntVar(&chaptersFrom, "from", 1, "first chapter to mirror")
	chaptersCmd.Flags().IntVar(&chaptersTo, "to", 1, "last chapter to mirror")
	chaptersCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(chaptersCmd)
}
