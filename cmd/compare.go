package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dvdmirror/internal/compare"
	"dvdmirror/internal/discio"
	"dvdmirror/internal/gapplan"
	"dvdmirror/internal/output"
)

var (
	compareTarget string
	compareGapMap bool
)

var compareCmd = &cobra.Command{
	Use:                   "compare --target DIR SOURCE",
	Short:                 "Byte-compare a mirrored tree against the disc",
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

		root := output.Root(compareTarget, cfg.TitleName)

		count, err := disc.TitleSetCount()
		if err != nil {
			reportErr(err)
			return nil
		}

		gapMap := compare.NewGapMap()
		mismatches := 0

		for ts := 1; ts < count; ts++ {
			inv, err := disc.Inventory(ts)
			if err != nil {
				reportErr(err)
				return nil
			}

			if inv.MenuVOBSize > 0 {
				path := output.MenuVOBPath(root, ts)
				if ok := compareOne(disc, ts, discio.DomainMenu, 0, path, inv.MenuVOBSize/discio.BlockSize, gapMap); !ok {
					mismatches++
				}
			}
			for p := 1; p <= len(inv.TitleVOBSize); p++ {
				path := output.TitleVOBPath(root, ts, p)
				sizeBlocks := inv.TitleVOBSize[p-1] / discio.BlockSize
				if ok := compareOne(disc, ts, discio.DomainTitle, p, path, sizeBlocks, gapMap); !ok {
					mismatches++
				}
			}
		}

		if mismatches == 0 {
			fmt.Println("compare: every file matches the disc")
		} else {
			fmt.Printf("compare: %d file(s) did not match\n", mismatches)
			exitCode = 1
		}

		if compareGapMap {
			fmt.Print(gapMap.Render())
		}

		return nil
	},
}

// compareOne runs a byte-exact compare of one domain file against its
// mirrored output path, folding the output file's existing gap plan into
// gapMap when --gap-map is set. It reports failures itself via reportErr
// and returns whether the file matched.
func compareOne(disc discio.Disc, titleSet int, domain discio.Domain, part int, path string, sizeBlocks int64, gapMap *compare.GapMap) bool {
	r, err := disc.OpenDomain(titleSet, domain, part)
	if err != nil {
		reportErr(err)
		return false
	}
	defer r.Close()

	f, err := os.Open(path)
	if err != nil {
		reportErr(err)
		return false
	}
	defer f.Close()

	if compareGapMap {
		if result, err := gapplan.Scan(f, sizeBlocks); err == nil {
			if result.FullBlockCount < sizeBlocks {
				result.Plan.Append(result.FullBlockCount, sizeBlocks-result.FullBlockCount)
			}
			gapMap.RecordFile(result.Plan, sizeBlocks)
		}
	}

	if err := compare.Run(r, f, path, 0, sizeBlocks); err != nil {
		reportErr(err)
		return false
	}
	return true
}

func init() {
	compareCmd.Flags().StringVar(&compareTarget, "target", "", "mirrored tree to compare")
	compareCmd.Flags().BoolVar(&compareGapMap, "gap-map", false, "render a text gap map after comparing")
	compareCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(compareCmd)
}
