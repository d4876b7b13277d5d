package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/feature"
	"dvdmirror/internal/mirrorcfg"
)

var infoCmd = &cobra.Command{
	Use:                   "info SOURCE",
	Short:                 "Print a disc's title-set and title inventory",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]

		disc, err := openSource(source)
		if err != nil {
			reportErr(err)
			return nil
		}
		defer disc.Close()

		count, err := disc.TitleSetCount()
		if err != nil {
			reportErr(err)
			return nil
		}
		fmt.Printf("%d title set(s)\n", count-1)

		inventories := make([]discio.TitleSetInventory, 0, count)
		for ts := 1; ts < count; ts++ {
			inv, err := disc.Inventory(ts)
			if err != nil {
				reportErr(err)
				return nil
			}
			inventories = append(inventories, inv)
			fmt.Printf("  title set %d: info=%s menu=%s titleVOB=%s (%d part(s))\n",
				ts, humanize.Bytes(uint64(inv.InfoSize)), humanize.Bytes(uint64(inv.MenuVOBSize)),
				humanize.Bytes(uint64(inv.TotalTitleVOBBytes())), len(inv.TitleVOBSize))
		}

		titles, err := disc.Titles()
		if err != nil {
			reportErr(err)
			return nil
		}
		for _, t := range titles {
			fmt.Printf("  title %d: title set %d, %d chapter(s), %d angle(s), aspect=%s\n",
				t.Title, t.TitleSet, t.ChapterCount, t.AngleCount, aspectLabel(t.AspectRatio))
		}

		signals := feature.BuildSignals(titles, inventories)
		result := feature.Guess(signals, mirrorcfg.AspectAny)
		if result.TitleSet != 0 {
			fmt.Printf("guessed main feature: title set %d\n", result.TitleSet)
		}

		return nil
	},
}

func aspectLabel(code uint8) string {
	switch code {
	case 0:
		return "4:3"
	case 3:
		return "16:9"
	default:
		return "unknown"
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
