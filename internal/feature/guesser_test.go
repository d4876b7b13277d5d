package feature_test

import (
	"testing"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/feature"
	"dvdmirror/internal/mirrorcfg"
)

func TestGuess_PicksClearWinner(t *testing.T) {
	titles := []discio.TitleDescriptor{
		{Title: 1, TitleSet: 1, ChapterCount: 20, AngleCount: 1, AudioStreamCount: 2, MaxAudioChannels: 6, SPStreamCount: 4, AspectRatio: 3},
		{Title: 2, TitleSet: 2, ChapterCount: 4, AngleCount: 1, AudioStreamCount: 1, MaxAudioChannels: 2, SPStreamCount: 1, AspectRatio: 0},
	}
	inventories := []discio.TitleSetInventory{
		{TitleSet: 1, TitleVOBSize: []int64{4_000_000_000}},
		{TitleSet: 2, TitleVOBSize: []int64{200_000_000}},
	}

	signals := feature.BuildSignals(titles, inventories)
	result := feature.Guess(signals, mirrorcfg.AspectAny)

	if result.TitleSet != 1 {
		t.Fatalf("expected title set 1 to win, got %d", result.TitleSet)
	}
	if result.Confirmations != 3 {
		t.Fatalf("expected 3 confirmations, got %d", result.Confirmations)
	}
}

func TestGuess_Deterministic(t *testing.T) {
	titles := []discio.TitleDescriptor{
		{Title: 1, TitleSet: 1, ChapterCount: 12, AudioStreamCount: 3, MaxAudioChannels: 6, SPStreamCount: 2, AspectRatio: 3},
		{Title: 2, TitleSet: 2, ChapterCount: 8, AudioStreamCount: 2, MaxAudioChannels: 2, SPStreamCount: 1, AspectRatio: 0},
		{Title: 3, TitleSet: 3, ChapterCount: 1, AudioStreamCount: 1, MaxAudioChannels: 2, SPStreamCount: 0, AspectRatio: 0},
	}
	inventories := []discio.TitleSetInventory{
		{TitleSet: 1, TitleVOBSize: []int64{3_000_000_000}},
		{TitleSet: 2, TitleVOBSize: []int64{1_000_000_000}},
		{TitleSet: 3, TitleVOBSize: []int64{10_000_000}},
	}

	signals := feature.BuildSignals(titles, inventories)
	r1 := feature.Guess(signals, mirrorcfg.AspectAny)
	r2 := feature.Guess(signals, mirrorcfg.AspectAny)

	if r1 != r2 {
		t.Fatalf("expected deterministic result, got %+v vs %+v", r1, r2)
	}
}

func TestGuess_DualDiscSameAspectIsMultiEpisode(t *testing.T) {
	titles := []discio.TitleDescriptor{
		{Title: 1, TitleSet: 1, ChapterCount: 6, AudioStreamCount: 2, MaxAudioChannels: 6, SPStreamCount: 1, AspectRatio: 3},
		{Title: 2, TitleSet: 2, ChapterCount: 10, AudioStreamCount: 2, MaxAudioChannels: 6, SPStreamCount: 1, AspectRatio: 3},
	}
	// size0/size1 == 1 integer div, (2*s0-s1)/s1==1, remainder*3<s0.
	inventories := []discio.TitleSetInventory{
		{TitleSet: 1, TitleVOBSize: []int64{1_200_000_000}},
		{TitleSet: 2, TitleVOBSize: []int64{1_000_000_000}},
	}

	signals := feature.BuildSignals(titles, inventories)
	result := feature.Guess(signals, mirrorcfg.AspectAny)

	if !result.Multi {
		t.Fatalf("expected a dual-disc same-aspect pair to be flagged multi-episode, got %+v", result)
	}
}
