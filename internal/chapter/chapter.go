// Package chapter implements the Chapter Extractor: resolving a
// (title, start-chapter, end-chapter) triple into an ordered, disjoint list
// of sector ranges within a title's VOB stream, then copying just those
// ranges.
package chapter

import (
	"sort"

	"github.com/pkg/errors"

	"dvdmirror/internal/blockio"
	"dvdmirror/internal/discio"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/mirrorcfg"
	"dvdmirror/internal/output"
)

// cellRange is one cell's sector range, inclusive on both ends, in blocks.
type cellRange struct {
	Start int64
	End   int64
}

// pgn maps a 1-based chapter ordinal to its program number within the
// title's single program chain. Under the single-PGC-per-title assumption
// this project carries, chapter ordinals and program numbers coincide.
func pgn(chapter int) int {
	return chapter
}

// clamp confines start and end chapter to [1, chapterCount].
func clamp(start, end, chapterCount int) (int, int) {
	if start < 1 {
		start = 1
	}
	if start > chapterCount {
		start = chapterCount
	}
	if end < start {
		end = start
	}
	if end > chapterCount {
		end = chapterCount
	}
	return start, end
}

// resolveCells turns a clamped chapter range into the inclusive [startCell,
// endCell] 1-based cell range within the title's program chain.
func resolveCells(pgc discio.PGC, chapterCount, startChapter, endChapter int) (int, int, error) {
	startIdx := pgn(startChapter) - 1
	if startIdx < 0 || startIdx >= len(pgc.ProgramMap) {
		return 0, 0, errors.Errorf("start chapter %d has no program-map entry", startChapter)
	}
	startCell := int(pgc.ProgramMap[startIdx])

	var endCell int
	if endChapter < chapterCount {
		endIdx := pgn(endChapter+1) - 1
		if endIdx < 0 || endIdx >= len(pgc.ProgramMap) {
			return 0, 0, errors.Errorf("chapter %d has no program-map entry", endChapter+1)
		}
		endCell = int(pgc.ProgramMap[endIdx]) - 1
	} else {
		endCell = len(pgc.Cells)
	}

	if startCell < 1 || endCell > len(pgc.Cells) || startCell > endCell {
		return 0, 0, errors.Errorf("resolved cell range [%d,%d] is out of bounds for %d cells", startCell, endCell, len(pgc.Cells))
	}
	return startCell, endCell, nil
}

// buildRanges collects the (first,last) sector pair for each cell in
// [startCell, endCell], sorts them by start sector, then aligns end-sectors
// so overlapping cells don't duplicate sectors: for every adjacent pair, if
// end[i] >= start[i+1], end[i] is clamped to start[i+1]-1.
func buildRanges(pgc discio.PGC, startCell, endCell int) []cellRange {
	ranges := make([]cellRange, 0, endCell-startCell+1)
	for cell := startCell; cell <= endCell; cell++ {
		c := pgc.Cells[cell-1]
		ranges = append(ranges, cellRange{Start: int64(c.FirstSector), End: int64(c.LastSector)})
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	for i := 0; i < len(ranges)-1; i++ {
		if ranges[i].End >= ranges[i+1].Start {
			ranges[i].End = ranges[i+1].Start - 1
		}
	}
	return ranges
}

// Extract resolves [startChapter, endChapter] of title to a cell-range
// selection and streams those ranges into title-VOB output files under
// root, splitting at the 1 GiB boundary as the Output-File Manager does for
// a whole title-set copy.
func Extract(disc discio.Disc, title discio.TitleDescriptor, inv discio.TitleSetInventory, startChapter, endChapter int, root string, cfg mirrorcfg.Config, progress blockio.ProgressFunc) error {
	startChapter, endChapter = clamp(startChapter, endChapter, title.ChapterCount)

	startCell, endCell, err := resolveCells(title.PGC, title.ChapterCount, startChapter, endChapter)
	if err != nil {
		return dvderr.New(dvderr.KindStructure, root, "resolving chapter range", err)
	}

	ranges := buildRanges(title.PGC, startCell, endCell)

	partSizeBlocks := make([]int64, len(inv.TitleVOBSize))
	for i, size := range inv.TitleVOBSize {
		partSizeBlocks[i] = size / discio.BlockSize
	}

	r, err := newTitleVOBReader(disc, inv.TitleSet, partSizeBlocks)
	if err != nil {
		return err
	}
	defer r.Close()

	splitter := output.NewPartSplitter(root, inv.TitleSet, output.Fresh)
	for _, cr := range ranges {
		if cr.End < cr.Start {
			continue // the whole cell was swallowed by end-sector alignment
		}
		count := cr.End - cr.Start + 1
		label := output.TitleVOBPath(root, inv.TitleSet, 1)
		if err := output.Stream(r, splitter, cr.Start, count, cfg.ErrorStrategy, label, progress); err != nil {
			splitter.CloseAll()
			return err
		}
	}
	return nil
}

// titleVOBReader presents a title set's title-VOB parts as one contiguous
// block address space, opening parts lazily as the read offset crosses
// part boundaries — chapter sector ranges are expressed relative to the
// whole title, not to any one VTS_xx_p.VOB part.
type titleVOBReader struct {
	disc       discio.Disc
	titleSet   int
	partBlocks []int64

	openPart int // 1-based; 0 means nothing open
	reader   discio.BlockReader
}

func newTitleVOBReader(disc discio.Disc, titleSet int, partBlocks []int64) (*titleVOBReader, error) {
	return &titleVOBReader{disc: disc, titleSet: titleSet, partBlocks: partBlocks}, nil
}

// locate returns the 1-based part index and the block offset within it
// that the given global block offset falls in.
func (r *titleVOBReader) locate(global int64) (part int, local int64, ok bool) {
	base := int64(0)
	for i, blocks := range r.partBlocks {
		if global < base+blocks {
			return i + 1, global - base, true
		}
		base += blocks
	}
	return 0, 0, false
}

func (r *titleVOBReader) ReadBlocks(buf []byte, blockOffset int64, count int) (int, error) {
	part, local, ok := r.locate(blockOffset)
	if !ok {
		return 0, nil
	}

	if r.openPart != part {
		if r.reader != nil {
			r.reader.Close()
			r.reader = nil
		}
		reader, err := r.disc.OpenDomain(r.titleSet, discio.DomainTitle, part)
		if err != nil {
			return 0, errors.Wrapf(err, "opening title VOB part %d", part)
		}
		r.reader = reader
		r.openPart = part
	}

	// Don't read past this part's end; the caller will issue another
	// ReadBlocks call for whatever part comes next.
	remaining := r.partBlocks[part-1] - local
	if int64(count) > remaining {
		count = int(remaining)
	}

	return r.reader.ReadBlocks(buf, local, count)
}

func (r *titleVOBReader) Close() error {
	if r.reader != nil {
		return r.reader.Close()
	}
	return nil
}
