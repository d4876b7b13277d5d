package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/feature"
	"dvdmirror/internal/mirrorcfg"
	"dvdmirror/internal/output"
	"dvdmirror/internal/titleset"
	"dvdmirror/internal/warnlist"
)

var (
	featureTarget       string
	featurePreferAspect string
)

var featureCmd = &cobra.Command{
	Use:                   "feature --target DIR SOURCE",
	Short:                 "Guess and mirror the disc's main feature title set",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		cfg, err := buildConfig(source)
		if err != nil {
			return err
		}
		switch featurePreferAspect {
		case "":
			// leave cfg.PreferredAspect at its zero value (AspectAny)
		case "4:3":
			cfg.PreferredAspect = mirrorcfg.AspectFull
		case "16:9":
			cfg.PreferredAspect = mirrorcfg.AspectWide
		default:
			return fmt.Errorf("unknown --prefer-aspect %q", featurePreferAspect)
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

		count, err := disc.TitleSetCount()
		if err != nil {
			reportErr(err)
			return nil
		}
		inventories := make([]discio.TitleSetInventory, 0, count)
		for ts := 1; ts < count; ts++ {
			inv, err := disc.Inventory(ts)
			if err != nil {
				reportErr(err)
				return nil
			}
			inventories = append(inventories, inv)
		}

		signals := feature.BuildSignals(titles, inventories)
		result := feature.Guess(signals, cfg.PreferredAspect)
		if result.TitleSet == 0 {
			reportErr(fmt.Errorf("no title sets found to guess a main feature from"))
			return nil
		}
		fmt.Printf("guessed main feature: title set %d (confirmations=%d chapter-rank=%d dual=%v multi=%v)\n",
			result.TitleSet, result.Confirmations, result.ChapterRank, result.Dual, result.Multi)

		inv, err := disc.Inventory(result.TitleSet)
		if err != nil {
			reportErr(err)
			return nil
		}

		root := output.Root(featureTarget, cfg.TitleName)
		if err := ensureRoot(root); err != nil {
			reportErr(err)
			return nil
		}
		warnings := warnlist.New()
		p := newProgress()

		label := fmt.Sprintf("title set %d", result.TitleSet)
		copyResult, err := titleset.Copy(disc, inv, root, cfg, warnings, p.Func(label, inv.TotalTitleVOBBytes()/discio.BlockSize))
		p.Wait()
		if err != nil {
			reportErr(err)
			return nil
		}

		fmt.Printf("title set %d: menu=%v parts=%d refreshed=%v\n", copyResult.TitleSet, copyResult.MenuCopied, copyResult.TitleParts, copyResult.RefreshedVOB)
		if !warnings.Empty() {
			fmt.Println("warnings:")
			fmt.Print(warnings.String())
		}
		return nil
	},
}

func init() {
	featureCmd.Flags().StringVar(&featureTarget, "target", "", "destination directory")
	featureCmd.Flags().StringVar(&featurePreferAspect, "prefer-aspect", "", `dual-disc aspect tie-break: "4:3" or "16:9"`)
	featureCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(featureCmd)
}
