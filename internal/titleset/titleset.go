// Package titleset implements the Title-Set Copier: orchestrating the
// information-file duplication, menu VOB copy, and title-VOB part
// sequence for one title set.
package titleset

import (
	"github.com/pkg/errors"

	"dvdmirror/internal/blockio"
	"dvdmirror/internal/discio"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/gaprefresh"
	"dvdmirror/internal/mirrorcfg"
	"dvdmirror/internal/output"
	"dvdmirror/internal/warnlist"
)

// Result reports what a title-set copy actually did, for the info/summary
// report.
type Result struct {
	TitleSet     int
	MenuCopied   bool
	TitleParts   int
	RefreshedVOB bool
}

func openMode(cfg mirrorcfg.Config) output.Mode {
	if cfg.Refresh {
		return output.Refresh
	}
	return output.Fresh
}

// Copy duplicates the information file, copies the menu VOB if present, and
// streams every title-VOB part for titleSet, per inv. Any per-file failure
// aborts the whole title set. Size-invariant violations on a title VOB are
// fatal; on a menu VOB they are recorded in warnings and the copy proceeds.
func Copy(disc discio.Disc, inv discio.TitleSetInventory, root string, cfg mirrorcfg.Config, warnings *warnlist.List, progress blockio.ProgressFunc) (Result, error) {
	result := Result{TitleSet: inv.TitleSet}
	mode := openMode(cfg)

	if err := copyInfo(disc, inv, root, mode); err != nil {
		return result, err
	}

	if inv.MenuVOBSize%discio.BlockSize != 0 {
		warnings.Add(dvderr.New(dvderr.KindSizeInvariant, output.MenuVOBPath(root, inv.TitleSet), "menu VOB size check",
			errors.Errorf("menu VOB size %d is not a multiple of %d bytes", inv.MenuVOBSize, discio.BlockSize)))
	}
	if inv.MenuVOBSize > 0 {
		if err := copyMenu(disc, inv, root, cfg, progress); err != nil {
			return result, err
		}
		result.MenuCopied = true
	}

	for p := 1; p <= len(inv.TitleVOBSize); p++ {
		size := inv.TitleVOBSize[p-1]
		if size%discio.BlockSize != 0 {
			return result, dvderr.New(dvderr.KindSizeInvariant, output.TitleVOBPath(root, inv.TitleSet, p), "title VOB size check",
				errors.Errorf("title VOB size %d is not a multiple of %d bytes", size, discio.BlockSize))
		}
	}

	if cfg.Refresh {
		if err := refreshTitleVOBs(disc, inv, root, cfg); err != nil {
			return result, err
		}
		result.RefreshedVOB = true
	} else if err := copyTitleVOBs(disc, inv, root, cfg, progress); err != nil {
		return result, err
	}
	result.TitleParts = len(inv.TitleVOBSize)

	return result, nil
}

func copyInfo(disc discio.Disc, inv discio.TitleSetInventory, root string, mode output.Mode) error {
	r, err := disc.OpenInfo(inv.TitleSet)
	if err != nil {
		return errors.Wrapf(err, "opening info file for title set %d", inv.TitleSet)
	}
	defer r.Close()

	data, err := r.ReadAll()
	if err != nil {
		return errors.Wrapf(err, "reading info file for title set %d", inv.TitleSet)
	}

	for _, bup := range []bool{false, true} {
		path := output.InfoPath(root, inv.TitleSet, bup)
		f, err := output.Open(path, mode)
		if err != nil {
			return err
		}
		if _, err := f.WriteAt(data, 0); err != nil {
			f.Close()
			return dvderr.New(dvderr.KindFileIO, path, "writing info file", err)
		}
		err = output.Finalize(f, path, (int64(len(data))+discio.BlockSize-1)/discio.BlockSize)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func copyMenu(disc discio.Disc, inv discio.TitleSetInventory, root string, cfg mirrorcfg.Config, progress blockio.ProgressFunc) error {
	path := output.MenuVOBPath(root, inv.TitleSet)
	sizeBlocks := inv.MenuVOBSize / discio.BlockSize

	r, err := disc.OpenDomain(inv.TitleSet, discio.DomainMenu, 0)
	if err != nil {
		return errors.Wrapf(err, "opening menu VOB for title set %d", inv.TitleSet)
	}
	defer r.Close()

	if cfg.Refresh {
		f, err := output.Open(path, output.Refresh)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = gaprefresh.Refresh(path, f, r, 0, sizeBlocks, cfg.ErrorStrategy, cfg.GapOrdering, cfg.GapSeed)
		return err
	}

	f, err := output.Open(path, output.Fresh)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := blockio.Copy(r, f, path, 0, sizeBlocks, cfg.ErrorStrategy, "menu VOB", progress); err != nil {
		return err
	}
	return output.Finalize(f, path, sizeBlocks)
}

// copyTitleVOBs streams each source title-VOB part straight into its own
// like-numbered output file: disc.OpenDomain already hands back a reader
// scoped to that one part (addressed from block 0), so parts are copied
// 1:1 rather than re-split across a shared 1 GiB boundary.
func copyTitleVOBs(disc discio.Disc, inv discio.TitleSetInventory, root string, cfg mirrorcfg.Config, progress blockio.ProgressFunc) error {
	for p := 1; p <= len(inv.TitleVOBSize); p++ {
		sizeBlocks := inv.TitleVOBSize[p-1] / discio.BlockSize
		path := output.TitleVOBPath(root, inv.TitleSet, p)

		r, err := disc.OpenDomain(inv.TitleSet, discio.DomainTitle, p)
		if err != nil {
			return errors.Wrapf(err, "opening title VOB part %d for title set %d", p, inv.TitleSet)
		}

		f, err := output.Open(path, output.Fresh)
		if err != nil {
			r.Close()
			return err
		}

		err = blockio.Copy(r, f, path, 0, sizeBlocks, cfg.ErrorStrategy, path, progress)
		r.Close()
		if err != nil {
			f.Close()
			return err
		}

		err = output.Finalize(f, path, sizeBlocks)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// refreshTitleVOBs verifies and refills each already-existing title-VOB
// part against the disc, rather than re-streaming it whole.
func refreshTitleVOBs(disc discio.Disc, inv discio.TitleSetInventory, root string, cfg mirrorcfg.Config) error {
	for p := 1; p <= len(inv.TitleVOBSize); p++ {
		sizeBlocks := inv.TitleVOBSize[p-1] / discio.BlockSize
		path := output.TitleVOBPath(root, inv.TitleSet, p)

		r, err := disc.OpenDomain(inv.TitleSet, discio.DomainTitle, p)
		if err != nil {
			return errors.Wrapf(err, "opening title VOB part %d for title set %d", p, inv.TitleSet)
		}

		f, err := output.Open(path, output.Refresh)
		if err != nil {
			r.Close()
			return err
		}

		_, err = gaprefresh.Refresh(path, f, r, 0, sizeBlocks, cfg.ErrorStrategy, cfg.GapOrdering, cfg.GapSeed)
		f.Close()
		r.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
