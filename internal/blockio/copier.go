// Package blockio implements the Block Copier: copying a contiguous
// logical-block range from a disc domain handle to an output file,
// handling short reads per the configured error strategy.
package blockio

import (
	"io"

	"github.com/pkg/errors"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/mirrorcfg"
)

// chunkBlocks is the working-buffer size: 512 blocks (1 MiB).
const chunkBlocks = 512

// ProgressFunc is invoked after each chunk with the running total of blocks
// copied, the total block count for this operation, and a caller-supplied
// label. It is the sole hook internal/progress wires a renderer through;
// core packages never render progress themselves.
type ProgressFunc func(blocksDone, totalBlocks int64, label string)

// Copy reads count blocks starting at diskOffset from disc and appends them
// to out, which must already be positioned for appending — internal/output
// owns seeking and truncation, so writes here are always contiguous
// appends. Short reads are handled per strategy: ABORT fails, SKIP_BLOCK
// pads one zero block, SKIP_MULTIBLOCK pads the full shortfall.
func Copy(disc discio.BlockReader, out io.Writer, path string, diskOffset int64, count int64, strategy mirrorcfg.ErrorStrategy, label string, progress ProgressFunc) error {
	buf := make([]byte, chunkBlocks*discio.BlockSize)

	var done int64
	for done < count {
		want := count - done
		if want > chunkBlocks {
			want = chunkBlocks
		}

		got, err := disc.ReadBlocks(buf, diskOffset+done, int(want))
		if got < 0 {
			got = 0
		}

		if err != nil && got == 0 {
			if writeErr := writeBlocks(out, buf, 0); writeErr != nil {
				return dvderr.NewAt(dvderr.KindFileIO, path, "write", diskOffset+done, writeErr)
			}
			advance, padErr := handleShortRead(out, strategy, 0, int(want), diskOffset+done, path)
			if padErr != nil {
				return padErr
			}
			done += advance
			if progress != nil {
				progress(done, count, label)
			}
			continue
		}
		if err != nil {
			return dvderr.NewAt(dvderr.KindDiscRead, path, "read", diskOffset+done, err)
		}

		if writeErr := writeBlocks(out, buf, got); writeErr != nil {
			return dvderr.NewAt(dvderr.KindFileIO, path, "write", diskOffset+done, writeErr)
		}

		if int64(got) < want {
			advance, padErr := handleShortRead(out, strategy, got, int(want), diskOffset+done, path)
			if padErr != nil {
				return padErr
			}
			done += advance
		} else {
			done += want
		}
		if progress != nil {
			progress(done, count, label)
		}
	}

	return nil
}

func writeBlocks(out io.Writer, buf []byte, blocks int) error {
	if blocks == 0 {
		return nil
	}
	_, err := out.Write(buf[:blocks*discio.BlockSize])
	return err
}

// handleShortRead applies the configured error strategy after got blocks (of
// want requested) were written, and reports how many blocks the cursor
// should advance past diskOffset+done: ABORT fails; SKIP_BLOCK pads one zero
// block and advances got+1, matching the original tool's "pad one block,
// advance one block beyond the partial read" (dvdbackup.c's numBlanks==1
// case); SKIP_MULTIBLOCK pads the full shortfall and advances the full want,
// since got+(want-got) covers the whole requested range.
func handleShortRead(out io.Writer, strategy mirrorcfg.ErrorStrategy, got, want int, block int64, path string) (int64, error) {
	switch strategy {
	case mirrorcfg.Abort:
		return 0, dvderr.NewAt(dvderr.KindDiscRead, path, "short read", block, errors.Errorf("got %d of %d requested blocks", got, want))
	case mirrorcfg.SkipBlock:
		if err := padZeroBlocks(out, 1); err != nil {
			return 0, err
		}
		return int64(got) + 1, nil
	case mirrorcfg.SkipMultiblock:
		if err := padZeroBlocks(out, want-got); err != nil {
			return 0, err
		}
		return int64(want), nil
	default:
		return 0, dvderr.NewAt(dvderr.KindAllocation, path, "short read", block, errors.Errorf("unknown error strategy %v", strategy))
	}
}

func padZeroBlocks(out io.Writer, blocks int) error {
	if blocks <= 0 {
		return nil
	}
	zero := make([]byte, blocks*discio.BlockSize)
	_, err := out.Write(zero)
	return err
}
