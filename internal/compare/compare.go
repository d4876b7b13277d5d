// Package compare implements Compare Mode: byte-exact verification of a
// mirrored file against its disc source, plus an optional gap-map
// accumulator and text-grid renderer for visualizing where a file's holes
// sit on the disc.
package compare

import (
	"os"

	"github.com/pkg/errors"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/gapplan"
)

// chunkBlocks matches the block copier's working-buffer size.
const chunkBlocks = 512

// Mismatch describes the first differing sector found during a comparison.
type Mismatch struct {
	Block int64
}

// Run reads disc and the file at path in matching 512-block chunks and
// compares them byte-for-byte, failing on the first differing block. After
// the last full block, it probes for one additional byte in the file; if
// present, the file holds excess data beyond what the disc's count implies.
func Run(disc discio.BlockReader, out *os.File, path string, diskOffset, count int64) error {
	discBuf := make([]byte, chunkBlocks*discio.BlockSize)
	fileBuf := make([]byte, chunkBlocks*discio.BlockSize)

	var done int64
	for done < count {
		want := count - done
		if want > chunkBlocks {
			want = chunkBlocks
		}

		got, err := disc.ReadBlocks(discBuf, diskOffset+done, int(want))
		if err != nil && got == 0 {
			return dvderr.NewAt(dvderr.KindDiscRead, path, "compare read", done, err)
		}

		n, err := out.ReadAt(fileBuf[:int64(got)*discio.BlockSize], done*discio.BlockSize)
		if err != nil && int64(n) < int64(got)*discio.BlockSize {
			return dvderr.NewAt(dvderr.KindFileIO, path, "compare read", done, err)
		}

		for b := 0; b < got; b++ {
			block := discBuf[b*discio.BlockSize : (b+1)*discio.BlockSize]
			other := fileBuf[b*discio.BlockSize : (b+1)*discio.BlockSize]
			for i := range block {
				if block[i] != other[i] {
					return dvderr.NewAt(dvderr.KindVerification, path, "compare", done+int64(b), errors.New("file block differs from the disc"))
				}
			}
		}

		done += int64(got)
		if got < int(want) {
			break
		}
	}

	trailing := make([]byte, 1)
	if n, err := out.ReadAt(trailing, count*discio.BlockSize); err == nil && n > 0 {
		return dvderr.NewAt(dvderr.KindVerification, path, "compare", count, errors.New("file contains excess data beyond the disc's reported size"))
	}

	return nil
}

// GapMap accumulates gap ranges across every file compared in a run,
// each recorded at an absolute block base advanced by the total blocks
// examined so far, so the renderer can show where every file's holes sit
// on a single combined disc-relative scale.
//
// Unlike the "process-wide state with reset()/free() hooks" the original
// tool kept, this is an explicit value the caller owns and threads through
// one compare run — no package-level globals.
type GapMap struct {
	totalBlocks int64
	ranges      []gapplan.Range
}

// NewGapMap returns an empty accumulator.
func NewGapMap() *GapMap {
	return &GapMap{}
}

// RecordFile folds plan's ranges into the map at the current base, then
// advances the base by fileBlocks (the file's full examined length,
// including any trailing-missing synthetic range already folded into plan).
func (m *GapMap) RecordFile(plan gapplan.Plan, fileBlocks int64) {
	base := m.totalBlocks
	for _, r := range plan.Ranges() {
		m.ranges = append(m.ranges, gapplan.Range{Start: base + r.Start, Count: r.Count})
	}
	m.totalBlocks += fileBlocks
}

// gridRows and gridCols are the fixed text-grid render dimensions.
const (
	gridRows = 20
	gridCols = 60
)

// minTurnLength and maxTurnLength bound the uncalibrated angular model used
// to spread samples around each row, approximating how a DVD's constant
// linear velocity track makes each successive row (outward on the disc)
// cover more absolute blocks per revolution.
const (
	minTurnLength = 192
	maxTurnLength = 432
)

// Render draws the accumulated gap map as a 20x60 character grid: '#' where
// a sampled block falls, '.' elsewhere, bordered by a line of '-' above and
// below.
func (m *GapMap) Render() string {
	grid := make([][]byte, gridRows)
	for r := range grid {
		grid[r] = make([]byte, gridCols)
		for c := range grid[r] {
			grid[r][c] = '.'
		}
	}

	if m.totalBlocks > 0 {
		for _, rg := range m.ranges {
			stride := rg.Count / 31
			if stride < 1 {
				stride = 1
			}
			for abs := rg.Start; abs < rg.End(); abs += stride {
				row := int(abs * gridRows / m.totalBlocks)
				if row >= gridRows {
					row = gridRows - 1
				}
				turnLength := minTurnLength + (maxTurnLength-minTurnLength)*row/(gridRows-1)
				col := int((abs % int64(turnLength)) * gridCols / int64(turnLength))
				if col >= gridCols {
					col = gridCols - 1
				}
				grid[row][col] = '#'
			}
		}
	}

	border := make([]byte, gridCols+2)
	for i := range border {
		border[i] = '-'
	}

	out := make([]byte, 0, (gridRows+2)*(gridCols+3))
	out = append(out, border...)
	out = append(out, '\n')
	for _, row := range grid {
		out = append(out, '|')
		out = append(out, row...)
		out = append(out, '|', '\n')
	}
	out = append(out, border...)
	out = append(out, '\n')
	return string(out)
}
