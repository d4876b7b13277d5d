// Package discio defines the disc-access collaborator interface the core
// depends on: opening a title set's domain files, statting them, reading
// logical blocks, and reading the IFO metadata needed to build a
// TitleSetInventory and the per-title TitleDescriptor/PGC data.
//
// It stays deliberately small — just disc-read and IFO-access — so a
// synthetic disc can stand in for real media in tests.
// internal/discio/fsdisc implements it against a mounted VIDEO_TS volume;
// internal/discio/synthetic implements it in-memory.
package discio

import "io"

// BlockSize is the fixed DVD-Video logical block size in bytes.
const BlockSize = 2048

// Domain identifies which file within a title set is being addressed.
type Domain int

const (
	// DomainInfo is the VTS_xx_0.IFO / VIDEO_TS.IFO information file.
	DomainInfo Domain = iota
	// DomainMenu is the VTS_xx_0.VOB / VIDEO_TS.VOB menu video object.
	DomainMenu
	// DomainTitle is a VTS_xx_{p}.VOB title video object part.
	DomainTitle
)

// VMG is the title-set index of the Video Manager domain.
const VMG = 0

// Stat describes a domain's on-disc size(s). For DomainTitle, Parts holds
// the size in bytes of each of the 0-9 title-VOB parts in order; for
// DomainInfo/DomainMenu, Parts has exactly one element (zero if absent).
type Stat struct {
	Parts []int64
}

// TotalBytes sums every part's size.
func (s Stat) TotalBytes() int64 {
	var total int64
	for _, p := range s.Parts {
		total += p
	}
	return total
}

// BlockReader reads whole logical blocks from a single open domain file.
// ReadBlocks requests count blocks starting at the given block offset (from
// the start of this domain file) and returns the number of whole blocks
// actually read into buf, which must be at least count*BlockSize bytes.
// A short count (0 <= got < count) is not itself an error; an I/O failure
// before any block was produced returns got=0 and a non-nil error.
type BlockReader interface {
	io.Closer
	ReadBlocks(buf []byte, blockOffset int64, count int) (got int, err error)
}

// InfoReader reads raw bytes from an IFO file, used to duplicate it
// byte-for-byte into the mirrored .IFO/.BUP pair.
type InfoReader interface {
	io.Closer
	ReadAll() ([]byte, error)
}

// CellPlayback is a single cell's sector range within a title VOB,
// inclusive on both ends.
type CellPlayback struct {
	FirstSector uint32
	LastSector  uint32
}

// PGC is a program chain: an ordered cell list and the program map from
// chapter (PTT) number to the 1-based index of its first cell.
type PGC struct {
	ProgramMap []uint8 // program_map[pgn-1] = 1-based cell index
	Cells      []CellPlayback
}

// TitleDescriptor is the per-title metadata needed by the Feature Guesser
// and the Chapter Extractor.
type TitleDescriptor struct {
	Title            int // 1-based, over all titles on the disc
	TitleSet         int
	VTSTitleNumber   int // intra-title-set ordinal
	ChapterCount     int
	AngleCount       int
	AspectRatio      uint8
	AudioStreamCount int
	MaxAudioChannels int
	SPStreamCount    int
	PGC              PGC
}

// TitleSetInventory is the per-title-set file layout needed to mirror it:
// IFO size, menu VOB size (0 if absent), and the size of each of the 0-9
// title-VOB parts present.
type TitleSetInventory struct {
	TitleSet     int
	InfoSize     int64
	MenuVOBSize  int64
	TitleVOBSize []int64 // size in bytes of each part, in order
}

// TotalTitleVOBBytes sums every title-VOB part's size.
func (inv TitleSetInventory) TotalTitleVOBBytes() int64 {
	var total int64
	for _, s := range inv.TitleVOBSize {
		total += s
	}
	return total
}

// Disc is the disc-access collaborator: open by device/mount path, resolve
// IFO structures, open domain files, read logical blocks.
type Disc interface {
	// TitleSetCount returns the number of title sets, including the VMG
	// domain at index 0.
	TitleSetCount() (int, error)

	// Inventory returns the file-size inventory for title set k.
	Inventory(titleSet int) (TitleSetInventory, error)

	// Titles returns every title's descriptor, across all title sets.
	Titles() ([]TitleDescriptor, error)

	// OpenDomain opens a readable block handle onto a title set's domain
	// file. For DomainTitle, part is the 1-based part index; it is
	// ignored for DomainInfo/DomainMenu.
	OpenDomain(titleSet int, domain Domain, part int) (BlockReader, error)

	// OpenInfo opens the raw IFO bytes for a title set, for byte-exact
	// duplication into the .IFO/.BUP pair.
	OpenInfo(titleSet int) (InfoReader, error)

	// Close releases any resources the disc handle holds.
	Close() error
}
