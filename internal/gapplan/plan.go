// Package gapplan implements the Gap Plan: scanning an existing output
// file for blank or missing blocks and building an ordered, disjoint
// cover of the holes.
package gapplan

import (
	"os"

	"github.com/pkg/errors"

	"dvdmirror/internal/discio"
)

// scanChunkBlocks is the walk chunk size: 512 blocks, matching the block
// copier's own 1 MiB working buffer.
const scanChunkBlocks = 512

// Range is a disjoint, inclusive-start/exclusive-end run of missing or
// blank blocks: [Start, Start+Count).
type Range struct {
	Start int64
	Count int64
}

// End returns the first block index past this range.
func (r Range) End() int64 {
	return r.Start + r.Count
}

// Plan is an ordered, disjoint list of gap ranges: strictly increasing
// starts, no adjacency (adjacent ranges are coalesced on insertion).
type Plan struct {
	ranges []Range
}

// Ranges returns the plan's ranges in order.
func (p *Plan) Ranges() []Range {
	return p.ranges
}

// Empty reports whether the plan has no gaps.
func (p *Plan) Empty() bool {
	return len(p.ranges) == 0
}

// TotalBlocks sums every range's block count.
func (p *Plan) TotalBlocks() int64 {
	var total int64
	for _, r := range p.ranges {
		total += r.Count
	}
	return total
}

// Append inserts a range, coalescing it with the last range in the plan if
// it starts within or immediately after it, preserving the no-adjacency
// invariant. Ranges must be appended in non-decreasing Start order.
func (p *Plan) Append(start, count int64) {
	if count <= 0 {
		return
	}
	if n := len(p.ranges); n > 0 {
		last := &p.ranges[n-1]
		if start <= last.End() {
			newEnd := start + count
			if newEnd > last.End() {
				last.Count = newEnd - last.Start
			}
			return
		}
	}
	p.ranges = append(p.ranges, Range{Start: start, Count: count})
}

// Contains reports whether block lies in some range, exploiting the plan's
// sorted, disjoint invariant with a binary search.
func (p *Plan) Contains(block int64) bool {
	lo, hi := 0, len(p.ranges)
	for lo < hi {
		mid := (lo + hi) / 2
		r := p.ranges[mid]
		switch {
		case block < r.Start:
			hi = mid
		case block >= r.End():
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// Result is what Scan reports about an existing output file: the gap plan
// plus summary counts of blank, full, and existing blocks.
type Result struct {
	Plan            Plan
	BlankBlockCount int64
	FullBlockCount  int64
	ExistingBytes   int64
}

// Scan walks an existing output file and builds its gap plan.
// expectedBlocks is the block count the finished file should have; bytes
// beyond the last full block are ignored.
func Scan(out *os.File, expectedBlocks int64) (Result, error) {
	info, err := out.Stat()
	if err != nil {
		return Result{}, errors.Wrap(err, "statting output file")
	}
	existingBytes := info.Size()

	fullBlocks := existingBytes / discio.BlockSize
	scanBlocks := fullBlocks
	if expectedBlocks < scanBlocks {
		scanBlocks = expectedBlocks
	}

	plan := Plan{}
	buf := make([]byte, scanChunkBlocks*discio.BlockSize)

	var pendingStart int64 = -1
	var pendingLen int64

	var block int64
	for block < scanBlocks {
		want := scanBlocks - block
		if want > scanChunkBlocks {
			want = scanChunkBlocks
		}

		n, err := out.ReadAt(buf[:want*discio.BlockSize], block*discio.BlockSize)
		read := int64(n) / discio.BlockSize
		if err != nil && read == 0 {
			return Result{}, errors.Wrapf(err, "reading existing output at block %d", block)
		}

		for i := int64(0); i < read; i++ {
			idx := block + i
			chunk := buf[i*discio.BlockSize : (i+1)*discio.BlockSize]
			if isBlank(chunk) {
				if pendingStart < 0 {
					pendingStart = idx
					pendingLen = 1
				} else {
					pendingLen++
				}
			} else if pendingStart >= 0 {
				plan.Append(pendingStart, pendingLen)
				pendingStart = -1
				pendingLen = 0
			}
		}

		block += read
		if read < want {
			break
		}
	}

	if pendingStart >= 0 {
		plan.Append(pendingStart, pendingLen)
	}

	return Result{
		Plan:            plan,
		BlankBlockCount: plan.TotalBlocks(),
		FullBlockCount:  fullBlocks,
		ExistingBytes:   existingBytes,
	}, nil
}

func isBlank(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}
