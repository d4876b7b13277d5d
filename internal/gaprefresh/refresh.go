// Package gaprefresh implements the Gap Refresher: sample-verifying an
// existing output file against the disc, then refilling its planned gap
// ranges in a chosen traversal order.
package gaprefresh

import (
	"math/rand"
	"os"

	"github.com/pkg/errors"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/gapplan"
	"dvdmirror/internal/mirrorcfg"
)

// maxSamples is the maximum number of verification samples drawn.
const maxSamples = 32

// segmentBlocks is the largest refill write segment, matching the block
// copier's own chunk size.
const segmentBlocks = 512

// Report summarizes a completed refresh.
type Report struct {
	BlankBefore     int64
	BlankAfter      int64
	TruncatedBefore int64
	TruncatedAfter  int64
	FilledBlocks    int64
}

// Refresh verifies and refills path against disc at diskOffset, for a file
// that should end up expectedBlocks long.
func Refresh(path string, out *os.File, disc discio.BlockReader, diskOffset, expectedBlocks int64, strategy mirrorcfg.ErrorStrategy, ordering mirrorcfg.GapOrdering, seed uint64) (Report, error) {
	before, err := gapplan.Scan(out, expectedBlocks)
	if err != nil {
		return Report{}, errors.Wrap(err, "scanning existing output before refresh")
	}

	plan := before.Plan
	existingBlocks := before.FullBlockCount
	truncatedBefore := int64(0)
	if existingBlocks < expectedBlocks {
		truncatedBefore = (expectedBlocks - existingBlocks) * discio.BlockSize
		plan.Append(existingBlocks, expectedBlocks-existingBlocks)
	}

	if err := verifySamples(path, out, disc, diskOffset, expectedBlocks, &plan); err != nil {
		return Report{}, err
	}

	if err := refill(path, out, disc, diskOffset, &plan, strategy, ordering, seed); err != nil {
		return Report{}, err
	}

	after, err := gapplan.Scan(out, expectedBlocks)
	if err != nil {
		return Report{}, errors.Wrap(err, "scanning existing output after refresh")
	}
	missingAfter := expectedBlocks - after.FullBlockCount
	if missingAfter < 0 {
		missingAfter = 0
	}
	truncatedAfter := missingAfter * discio.BlockSize

	missingBefore := expectedBlocks - existingBlocks
	if missingBefore < 0 {
		missingBefore = 0
	}

	holesBefore := before.BlankBlockCount + missingBefore
	holesAfter := after.BlankBlockCount + missingAfter

	return Report{
		BlankBefore:     before.BlankBlockCount,
		BlankAfter:      after.BlankBlockCount,
		TruncatedBefore: truncatedBefore,
		TruncatedAfter:  truncatedAfter,
		FilledBlocks:    holesBefore - holesAfter,
	}, nil
}

// verifySamples draws up to maxSamples block indices spread across
// [0, expectedBlocks), skipping gap blocks, and fails the refresh if any
// sampled block on disc differs from the same block in the existing file.
func verifySamples(path string, out *os.File, disc discio.BlockReader, diskOffset, expectedBlocks int64, plan *gapplan.Plan) error {
	if expectedBlocks <= 0 {
		return nil
	}

	target := int64(maxSamples)
	if target > expectedBlocks {
		target = expectedBlocks
	}

	seen := map[int64]bool{}
	discBuf := make([]byte, discio.BlockSize)
	fileBuf := make([]byte, discio.BlockSize)

	for i := int64(0); i < target; i++ {
		candidate := ((i + 1) * expectedBlocks) / (target + 1)
		block, ok := findNonGapBlock(plan, candidate, expectedBlocks)
		if !ok || seen[block] {
			continue
		}
		seen[block] = true

		got, err := disc.ReadBlocks(discBuf, diskOffset+block, 1)
		if err != nil || got != 1 {
			return dvderr.NewAt(dvderr.KindDiscRead, path, "verification read", block, errors.Wrap(err, "reading sample block from disc"))
		}

		if _, err := out.ReadAt(fileBuf, block*discio.BlockSize); err != nil {
			return dvderr.NewAt(dvderr.KindFileIO, path, "verification read", block, err)
		}

		for j := range discBuf {
			if discBuf[j] != fileBuf[j] {
				return dvderr.NewAt(dvderr.KindVerification, path, "verification", block, errors.New("existing file block differs from the disc; refusing to refresh a mismatched source"))
			}
		}
	}

	return nil
}

// findNonGapBlock walks forward from candidate looking for a block outside
// the gap plan; if the walk reaches expectedBlocks, it walks backward from
// the original candidate instead.
func findNonGapBlock(plan *gapplan.Plan, candidate, expectedBlocks int64) (int64, bool) {
	for b := candidate; b < expectedBlocks; b++ {
		if !plan.Contains(b) {
			return b, true
		}
	}
	for b := candidate; b >= 0; b-- {
		if !plan.Contains(b) {
			return b, true
		}
	}
	return 0, false
}

// segment is one refill write unit: a sub-range of a plan range, at most
// segmentBlocks long.
type segment struct {
	start int64
	count int64
}

func refill(path string, out *os.File, disc discio.BlockReader, diskOffset int64, plan *gapplan.Plan, strategy mirrorcfg.ErrorStrategy, ordering mirrorcfg.GapOrdering, seed uint64) error {
	segments := buildSegments(plan.Ranges(), ordering, seed)

	buf := make([]byte, segmentBlocks*discio.BlockSize)
	for _, seg := range segments {
		got, err := disc.ReadBlocks(buf, diskOffset+seg.start, int(seg.count))
		if got < 0 {
			got = 0
		}
		if err != nil && got == 0 {
			if strategy == mirrorcfg.Abort {
				return dvderr.NewAt(dvderr.KindDiscRead, path, "refill read", seg.start, err)
			}
			// A persistently unreadable area: advance past it and leave
			// the remaining sectors absent.
			continue
		}
		if strategy == mirrorcfg.Abort && (err != nil || int64(got) < seg.count) {
			if err == nil {
				err = errors.Errorf("got %d of %d requested blocks", got, seg.count)
			}
			return dvderr.NewAt(dvderr.KindDiscRead, path, "refill read", seg.start, err)
		}
		// Under SkipBlock and SkipMultiblock a short read fills only the
		// blocks that were read; the rest of this segment is left as it
		// was, and no padding is written.

		if _, err := out.WriteAt(buf[:int64(got)*discio.BlockSize], seg.start*discio.BlockSize); err != nil {
			return dvderr.NewAt(dvderr.KindFileIO, path, "refill write", seg.start, err)
		}
	}
	return nil
}

// buildSegments flattens a plan's ranges into write segments in the order
// the chosen policy dictates.
func buildSegments(ranges []gapplan.Range, ordering mirrorcfg.GapOrdering, seed uint64) []segment {
	switch ordering {
	case mirrorcfg.Forward:
		return forwardSegments(ranges)
	case mirrorcfg.Reverse:
		return reverseSegments(ranges)
	case mirrorcfg.OutsideIn:
		return outsideInSegments(ranges)
	case mirrorcfg.Random:
		segs := forwardSegments(ranges)
		shuffle(segs, seed)
		return segs
	default:
		return forwardSegments(ranges)
	}
}

func forwardSegments(ranges []gapplan.Range) []segment {
	var out []segment
	for _, r := range ranges {
		for start := r.Start; start < r.End(); start += segmentBlocks {
			count := r.End() - start
			if count > segmentBlocks {
				count = segmentBlocks
			}
			out = append(out, segment{start: start, count: count})
		}
	}
	return out
}

func reverseSegments(ranges []gapplan.Range) []segment {
	var out []segment
	for _, r := range ranges {
		end := r.End()
		for end > r.Start {
			start := end - segmentBlocks
			if start < r.Start {
				start = r.Start
			}
			out = append(out, segment{start: start, count: end - start})
			end = start
		}
	}
	return out
}

func outsideInSegments(ranges []gapplan.Range) []segment {
	var out []segment
	for _, r := range ranges {
		head := r.Start
		tail := r.End()
		fromHead := true
		for head < tail {
			if fromHead {
				count := tail - head
				if count > segmentBlocks {
					count = segmentBlocks
				}
				out = append(out, segment{start: head, count: count})
				head += count
			} else {
				count := tail - head
				if count > segmentBlocks {
					count = segmentBlocks
				}
				start := tail - count
				out = append(out, segment{start: start, count: count})
				tail = start
			}
			fromHead = !fromHead
		}
	}
	return out
}

// shuffle applies a Fisher-Yates shuffle seeded by seed, for the RANDOM
// refill ordering.
func shuffle(segs []segment, seed uint64) {
	r := rand.New(rand.NewSource(int64(seed)))
	for i := len(segs) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		segs[i], segs[j] = segs[j], segs[i]
	}
}
