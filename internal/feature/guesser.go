// Package feature implements the Feature Guesser: a multi-signal ranking
// over title sets that elects the "main feature" without any metadata
// flag, following the same heuristic cascade as DVDMirrorMainFeature in
// the reference DVD-copying tool this project draws its domain from.
package feature

import (
	"sort"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/mirrorcfg"
)

// Signals is one title set's per-signal values, aggregated across its titles.
type Signals struct {
	TitleSet         int
	ChapterCount     int // of its title with the most chapters
	AngleCount       int // of its title with the most angles
	SPStreamCount    int
	AudioStreamCount int
	MaxAudioChannels int
	TotalVOBBytes    int64
	AspectRatio      uint8
}

// BuildSignals aggregates per-title descriptors into one Signals record per
// title set, skipping the VMG domain (title set 0 carries no titles).
func BuildSignals(titles []discio.TitleDescriptor, inventories []discio.TitleSetInventory) []Signals {
	byTitleSet := map[int]*Signals{}
	for _, t := range titles {
		s, ok := byTitleSet[t.TitleSet]
		if !ok {
			s = &Signals{TitleSet: t.TitleSet}
			byTitleSet[t.TitleSet] = s
		}
		if t.ChapterCount > s.ChapterCount {
			s.ChapterCount = t.ChapterCount
		}
		if t.AngleCount > s.AngleCount {
			s.AngleCount = t.AngleCount
		}
		if t.SPStreamCount > s.SPStreamCount {
			s.SPStreamCount = t.SPStreamCount
		}
		if t.AudioStreamCount > s.AudioStreamCount {
			s.AudioStreamCount = t.AudioStreamCount
		}
		if t.MaxAudioChannels > s.MaxAudioChannels {
			s.MaxAudioChannels = t.MaxAudioChannels
		}
		s.AspectRatio = t.AspectRatio
	}

	for _, inv := range inventories {
		if s, ok := byTitleSet[inv.TitleSet]; ok {
			s.TotalVOBBytes = inv.TotalTitleVOBBytes()
		}
	}

	out := make([]Signals, 0, len(byTitleSet))
	for _, s := range byTitleSet {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TitleSet < out[j].TitleSet })
	return out
}

// rankedBy returns title-set indices into signals sorted by the given key,
// highest first.
func rankedBy(signals []Signals, key func(Signals) int64) []int {
	idx := make([]int, len(signals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return key(signals[idx[a]]) > key(signals[idx[b]])
	})
	return idx
}

// Result is the elected main-feature title set and the decision path that
// produced it, useful for the info report.
type Result struct {
	TitleSet      int
	Confirmations int
	ChapterRank   int
	Dual          bool
	Multi         bool
}

// Guess runs the six-signal ranking and decision cascade over signals,
// preferring preferredAspect as the dual-disc tie-break.
func Guess(signals []Signals, preferredAspect mirrorcfg.AspectPreference) Result {
	if len(signals) == 0 {
		return Result{}
	}

	bySize := rankedBy(signals, func(s Signals) int64 { return s.TotalVOBBytes })
	c := signals[bySize[0]]

	dual, multi := false, false
	if len(bySize) > 1 {
		second := signals[bySize[1]]
		if isDualDisc(c.TotalVOBBytes, second.TotalVOBBytes) {
			if c.AspectRatio == second.AspectRatio {
				multi = true
			} else if c.ChapterCount == second.ChapterCount {
				dual = true
				if preferredAspect != mirrorcfg.AspectAny {
					if aspectMatches(second.AspectRatio, preferredAspect) && !aspectMatches(c.AspectRatio, preferredAspect) {
						c = second
					}
				}
			}
		}
	}

	confirmations := countConfirmations(signals, c)
	chapterRank := rankOf(rankedBy(signals, func(s Signals) int64 { return int64(s.ChapterCount) }), c.TitleSet, signals)

	switch {
	case confirmations == 3 && chapterRank == 1 && !dual && !multi:
		return Result{TitleSet: c.TitleSet, Confirmations: confirmations, ChapterRank: chapterRank, Dual: dual, Multi: multi}
	case confirmations == 3 && chapterRank < 3 && dual:
		return Result{TitleSet: c.TitleSet, Confirmations: confirmations, ChapterRank: chapterRank, Dual: dual, Multi: multi}
	}

	if multi {
		if best, ok := longestAmongLargest(signals, bySize); ok {
			if countConfirmations(signals, best) == 3 {
				return Result{TitleSet: best.TitleSet, Confirmations: 3, ChapterRank: rankOf(rankedBy(signals, func(s Signals) int64 { return int64(s.ChapterCount) }), best.TitleSet, signals), Dual: dual, Multi: multi}
			}
		}
	}

	// Fall through with c = argmax(size); re-test confirmations.
	c = signals[bySize[0]]
	confirmations = countConfirmations(signals, c)
	chapterRank = rankOf(rankedBy(signals, func(s Signals) int64 { return int64(s.ChapterCount) }), c.TitleSet, signals)
	result := Result{TitleSet: c.TitleSet, Confirmations: confirmations, ChapterRank: chapterRank, Dual: dual, Multi: multi}

	switch {
	case confirmations == 3:
		return result
	case confirmations > 1 && chapterRank <= 4:
		return result
	default:
		// Neither confirmed nor well-ranked: still return the largest
		// title set as a best-effort guess rather than reporting no
		// feature at all. Whether an explicit "unknown" outcome would
		// serve callers better here is unresolved.
		return result
	}
}

// isDualDisc implements the precise dual-disc test:
// size[0]/size[1] == 1 (integer division) and (2*size[0]-size[1])/size[1]
// == 1 and (size[0] mod size[1])*3 < size[0].
func isDualDisc(size0, size1 int64) bool {
	if size1 == 0 {
		return false
	}
	if size0/size1 != 1 {
		return false
	}
	if (2*size0-size1)/size1 != 1 {
		return false
	}
	return (size0%size1)*3 < size0
}

func aspectMatches(aspect uint8, pref mirrorcfg.AspectPreference) bool {
	switch pref {
	case mirrorcfg.AspectFull:
		return aspect == 0 // 4:3 is aspect code 0 in video_attr_t
	case mirrorcfg.AspectWide:
		return aspect == 3 // 16:9 is aspect code 3 in video_attr_t
	default:
		return false
	}
}

// countConfirmations tests whether candidate appears among the title sets
// tied for the maximum audio count, subpicture count, and channel count.
func countConfirmations(signals []Signals, candidate Signals) int {
	count := 0
	if tiedForMax(signals, candidate.TitleSet, func(s Signals) int64 { return int64(s.AudioStreamCount) }) {
		count++
	}
	if tiedForMax(signals, candidate.TitleSet, func(s Signals) int64 { return int64(s.SPStreamCount) }) {
		count++
	}
	if tiedForMax(signals, candidate.TitleSet, func(s Signals) int64 { return int64(s.MaxAudioChannels) }) {
		count++
	}
	return count
}

func tiedForMax(signals []Signals, titleSet int, key func(Signals) int64) bool {
	var max int64 = -1
	for _, s := range signals {
		if v := key(s); v > max {
			max = v
		}
	}
	for _, s := range signals {
		if s.TitleSet == titleSet {
			return key(s) == max
		}
	}
	return false
}

// rankOf returns candidate's 1-based position in ranking, or 6 if it is not
// among the top 4.
func rankOf(ranking []int, titleSet int, signals []Signals) int {
	for pos, idx := range ranking {
		if pos >= 4 {
			break
		}
		if signals[idx].TitleSet == titleSet {
			return pos + 1
		}
	}
	return 6
}

// longestAmongLargest scans for the longest chapter-count title set among
// those tied for the largest size, for the multi-episode branch.
func longestAmongLargest(signals []Signals, bySize []int) (Signals, bool) {
	if len(bySize) == 0 {
		return Signals{}, false
	}
	largest := signals[bySize[0]].TotalVOBBytes
	best := signals[bySize[0]]
	for _, idx := range bySize {
		s := signals[idx]
		if s.TotalVOBBytes != largest {
			break
		}
		if s.ChapterCount > best.ChapterCount {
			best = s
		}
	}
	return best, true
}
