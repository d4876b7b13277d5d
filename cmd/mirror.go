package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/output"
	"dvdmirror/internal/titleset"
	"dvdmirror/internal/warnlist"
)

var mirrorTarget string

var mirrorCmd = &cobra.Command{
	Use:                   "mirror --target DIR SOURCE",
	Short:                 "Mirror every title set on a disc",
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

		root := output.Root(mirrorTarget, cfg.TitleName)
		if err := ensureRoot(root); err != nil {
			reportErr(err)
			return nil
		}
		warnings := warnlist.New()
		p := newProgress()

		count, err := disc.TitleSetCount()
		if err != nil {
			reportErr(err)
			return nil
		}

		for ts := 0; ts < count; ts++ {
			inv, err := disc.Inventory(ts)
			if err != nil {
				reportErr(err)
				return nil
			}
			label := fmt.Sprintf("title set %d", ts)
			result, err := titleset.Copy(disc, inv, root, cfg, warnings, p.Func(label, inv.TotalTitleVOBBytes()/discio.BlockSize))
			if err != nil {
				reportErr(err)
				return nil
			}
			fmt.Printf("title set %d: menu=%v parts=%d refreshed=%v\n", result.TitleSet, result.MenuCopied, result.TitleParts, result.RefreshedVOB)
		}
		p.Wait()

		if !warnings.Empty() {
			fmt.Println("warnings:")
			fmt.Print(warnings.String())
		}
		return nil
	},
}

func init() {
	mirrorCmd.Flags().StringVar(&mirrorTarget, "target", "", "destination directory")
	mirrorCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(mirrorCmd)
}
