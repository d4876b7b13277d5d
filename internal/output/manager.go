// Package output implements the Output-File Manager: the deterministic
// VIDEO_TS naming scheme, open/truncate semantics, the 1 GiB split across
// multi-part title VOBs, and the final truncate.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"dvdmirror/internal/blockio"
	"dvdmirror/internal/discio"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/mirrorcfg"
)

// MaxPartBlocks is the 1 GiB split threshold in blocks: 524,288 blocks ==
// 1,073,741,824 bytes.
const MaxPartBlocks = 524288

// MaxTitleVOBParts is the maximum number of title-VOB parts per title set.
const MaxTitleVOBParts = 9

// Root returns the mirror tree root for a disc: <targetRoot>/<titleName>/VIDEO_TS.
func Root(targetRoot, titleName string) string {
	return filepath.Join(targetRoot, titleName, "VIDEO_TS")
}

// InfoPath returns the path of a title set's .IFO (or .BUP, via bup=true) file.
func InfoPath(root string, titleSet int, bup bool) string {
	ext := ".IFO"
	if bup {
		ext = ".BUP"
	}
	if titleSet == discio.VMG {
		return filepath.Join(root, "VIDEO_TS"+ext)
	}
	return filepath.Join(root, fmt.Sprintf("VTS_%02d_0%s", titleSet, ext))
}

// MenuVOBPath returns the path of a title set's menu VOB.
func MenuVOBPath(root string, titleSet int) string {
	if titleSet == discio.VMG {
		return filepath.Join(root, "VIDEO_TS.VOB")
	}
	return filepath.Join(root, fmt.Sprintf("VTS_%02d_0.VOB", titleSet))
}

// TitleVOBPath returns the path of title set titleSet's part-p title VOB,
// p in [1, MaxTitleVOBParts].
func TitleVOBPath(root string, titleSet, part int) string {
	return filepath.Join(root, fmt.Sprintf("VTS_%02d_%d.VOB", titleSet, part))
}

// Mode selects the open policy: Fresh truncates on create and is
// append-only; Refresh opens for read-write-create without truncating.
type Mode int

const (
	Fresh Mode = iota
	Refresh
)

// Open opens path under the given mode, refusing a Refresh open against a
// path that exists but is not a regular file.
func Open(path string, mode Mode) (*os.File, error) {
	switch mode {
	case Fresh:
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, dvderr.New(dvderr.KindFileIO, path, "open (fresh)", err)
		}
		return f, nil
	case Refresh:
		if info, err := os.Stat(path); err == nil && !info.Mode().IsRegular() {
			return nil, dvderr.New(dvderr.KindFileIO, path, "open (refresh)", errors.New("existing path is not a regular file"))
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, dvderr.New(dvderr.KindFileIO, path, "open (refresh)", err)
		}
		return f, nil
	default:
		return nil, dvderr.New(dvderr.KindAllocation, path, "open", errors.Errorf("unknown open mode %v", mode))
	}
}

// Finalize truncates f to exactly sizeBlocks*BlockSize bytes, guarding
// against an existing file that was already longer.
func Finalize(f *os.File, path string, sizeBlocks int64) error {
	if err := f.Truncate(sizeBlocks * discio.BlockSize); err != nil {
		return dvderr.New(dvderr.KindFileIO, path, "truncate", err)
	}
	return nil
}

// Part describes one title-VOB part's file handle and path, opened and
// ready for appending.
type Part struct {
	Index int
	Path  string
	File  *os.File
}

// PartSplitter tracks accumulated block count across the 1 GiB split while
// a title-VOB stream is written, opening a new part whenever the next chunk
// would exceed MaxPartBlocks and there is more data to come.
type PartSplitter struct {
	root     string
	titleSet int
	mode     Mode

	current      *Part
	blocksInPart int64
	parts        []*Part
}

// NewPartSplitter begins a split sequence for a title set's title VOB.
func NewPartSplitter(root string, titleSet int, mode Mode) *PartSplitter {
	return &PartSplitter{root: root, titleSet: titleSet, mode: mode}
}

// Parts returns every part opened so far.
func (s *PartSplitter) Parts() []*Part {
	return s.parts
}

// NextChunk returns the part to write into next and how many of the
// remaining blocks it can absorb before the 1 GiB boundary
// forces a rotation. MaxPartBlocks (524,288) is itself a multiple of the
// block copier's 512-block chunk size, so rotation always falls on a chunk
// boundary and never tears a blockio.Copy chunk across two files.
func (s *PartSplitter) NextChunk(remaining int64) (*Part, int64, error) {
	if s.current == nil {
		if err := s.openNext(); err != nil {
			return nil, 0, err
		}
	} else if s.blocksInPart >= MaxPartBlocks {
		if err := s.closeCurrent(); err != nil {
			return nil, 0, err
		}
		if len(s.parts) >= MaxTitleVOBParts {
			return nil, 0, dvderr.New(dvderr.KindStructure, s.root, "split", errors.Errorf("title set %d would need more than %d title-VOB parts", s.titleSet, MaxTitleVOBParts))
		}
		if err := s.openNext(); err != nil {
			return nil, 0, err
		}
	}

	available := MaxPartBlocks - s.blocksInPart
	blocks := remaining
	if blocks > available {
		blocks = available
	}
	s.blocksInPart += blocks
	return s.current, blocks, nil
}

func (s *PartSplitter) openNext() error {
	index := len(s.parts) + 1
	path := TitleVOBPath(s.root, s.titleSet, index)
	f, err := Open(path, s.mode)
	if err != nil {
		return err
	}
	s.current = &Part{Index: index, Path: path, File: f}
	s.parts = append(s.parts, s.current)
	s.blocksInPart = 0
	return nil
}

func (s *PartSplitter) closeCurrent() error {
	if s.current == nil {
		return nil
	}
	if err := Finalize(s.current.File, s.current.Path, s.blocksInPart); err != nil {
		return err
	}
	return nil
}

// Finish finalizes the currently open part. Callers must call Finish after
// the last NextChunk call to truncate the final part to its exact size.
func (s *PartSplitter) Finish() error {
	return s.closeCurrent()
}

// CloseAll closes every opened part's file handle, continuing past
// individual close errors and returning the first one encountered.
func (s *PartSplitter) CloseAll() error {
	var first error
	for _, p := range s.parts {
		if err := p.File.Close(); err != nil && first == nil {
			first = dvderr.New(dvderr.KindFileIO, p.Path, "close", err)
		}
	}
	return first
}

// Stream copies count blocks starting at diskOffset from disc through the
// splitter, rotating output files at the 1 GiB boundary. It is the glue
// between the Block Copier (C1) and the Output-File Manager (C4) that the
// Chapter Extractor (C6) uses; the Title-Set Copier (C5) copies each source
// part 1:1 without it.
func Stream(disc discio.BlockReader, splitter *PartSplitter, diskOffset, count int64, strategy mirrorcfg.ErrorStrategy, label string, progress blockio.ProgressFunc) error {
	var done int64
	for done < count {
		part, blocks, err := splitter.NextChunk(count - done)
		if err != nil {
			return err
		}
		if err := blockio.Copy(disc, part.File, part.Path, diskOffset+done, blocks, strategy, label, progress); err != nil {
			return err
		}
		done += blocks
	}
	return splitter.Finish()
}
