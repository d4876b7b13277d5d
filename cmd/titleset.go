package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/output"
	"dvdmirror/internal/titleset"
	"dvdmirror/internal/warnlist"
)

var (
	titlesetTarget string
	titlesetVTS    int
)

var titlesetCmd = &cobra.Command{
	Use:                   "titleset --target DIR --vts K SOURCE",
	Short:                 "Mirror a single title set",
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

		inv, err := disc.Inventory(titlesetVTS)
		if err != nil {
			reportErr(err)
			return nil
		}

		root := output.Root(titlesetTarget, cfg.TitleName)
		if err := ensureRoot(root); err != nil {
			reportErr(err)
			return nil
		}
		warnings := warnlist.New()
		p := newProgress()

		label := fmt.Sprintf("title set %d", titlesetVTS)
		result, err := titleset.Copy(disc, inv, root, cfg, warnings, p.Func(label, inv.TotalTitleVOBBytes()/discio.BlockSize))
		p.Wait()
		if err != nil {
			reportErr(err)
			return nil
		}

		fmt.Printf("title set %d: menu=%v parts=%d refreshed=%v\n", result.TitleSet, result.MenuCopied, result.TitleParts, result.RefreshedVOB)
		if !warnings.Empty() {
			fmt.Println("warnings:")
			fmt.Print(warnings.String())
		}
		return nil
	},
}

func init() {
	titlesetCmd.Flags().StringVar(&titlesetTarget, "target", "", "destination directory")
	titlesetCmd.Flags().IntVar(&titlesetVTS, "vts", 0, "title set number (0 is the video manager domain)")
	titlesetCmd.MarkFlagRequired("target")
	titlesetCmd.MarkFlagRequired("vts")
	rootCmd.AddCommand(titlesetCmd)
}
