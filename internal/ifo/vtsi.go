package ifo

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ProgramChain is the subset of a pgc_t this repo needs: the chapter
// (program) to first-cell map and the cell playback sector ranges.
type ProgramChain struct {
	ProgramMap []uint8 // 1-based cell index per chapter, ProgramMap[pgn-1]
	Cells      []CellPlayback
}

// CellPlayback is a single cell's inclusive sector range within the title
// VOB address space.
type CellPlayback struct {
	FirstSector uint32
	LastSector  uint32
}

// VTSI is the parsed subset of VTS_xx_0.IFO needed by this repo: the
// declared VTS-title count and the first program chain. Only the first PGC
// is read, assuming a single program chain covers the whole title —
// multi-angle or multi-story titles with several PGCs per title aren't
// modeled. Chapter counts are not read from the PTT table; ChapterCount
// derives them from the PGC.
type VTSI struct {
	ChapterCounts []int // one zero entry per VTS title; index 0 is VTS-title 1
	PGC           ProgramChain
}

// ParseVTSI reads a title set's information file, already loaded entirely
// into memory.
func ParseVTSI(data []byte) (VTSI, error) {
	var hdr commonHeader
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &hdr); err != nil {
		return VTSI{}, errors.Wrap(err, "reading VTSI common header")
	}

	var mat vtsiMat
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &mat); err != nil {
		return VTSI{}, errors.Wrap(err, "reading VTSI management table")
	}

	chapters, err := readPTTTable(data, int(mat.VTSPTTSrptSectorOffset)*blockSize)
	if err != nil {
		return VTSI{}, errors.Wrap(err, "reading VTS_PTT_SRPT")
	}

	pgc, err := readFirstPGC(data, int(mat.VTSPGCITSectorOffset)*blockSize)
	if err != nil {
		return VTSI{}, errors.Wrap(err, "reading VTS_PGCIT")
	}

	return VTSI{ChapterCounts: chapters, PGC: pgc}, nil
}

func readPTTTable(data []byte, offset int) ([]int, error) {
	if offset <= 0 || offset >= len(data) {
		return nil, errors.New("VTS_PTT_SRPT offset out of range")
	}

	r := bytes.NewReader(data[offset:])

	var hdr vtsPttSrptHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "reading VTS_PTT_SRPT header")
	}

	// Each title's PTT count is carried as a uint32 byte-offset entry in
	// the real format; this repo only needs the derived chapter count,
	// which libdvdread callers compute from the PGC's own program count.
	// We read the declared title count and fall back to deriving the
	// chapter count from the PGC program map at the call site.
	counts := make([]int, hdr.NrOfTitles)
	return counts, nil
}

func readFirstPGC(data []byte, offset int) (ProgramChain, error) {
	if offset <= 0 || offset >= len(data) {
		return ProgramChain{}, errors.New("VTS_PGCIT offset out of range")
	}

	r := bytes.NewReader(data[offset:])

	var srpHdr pgcitSrpHeader
	if err := binary.Read(r, binary.BigEndian, &srpHdr); err != nil {
		return ProgramChain{}, errors.Wrap(err, "reading VTS_PGCIT header")
	}
	if srpHdr.NrOfPGCI == 0 {
		return ProgramChain{}, errors.New("VTS_PGCIT has no program chains")
	}

	var srp pgcitSrpEntry
	if err := binary.Read(r, binary.BigEndian, &srp); err != nil {
		return ProgramChain{}, errors.Wrap(err, "reading first PGCI search pointer")
	}

	pgcOffset := offset + int(srp.PGCOffset)
	if pgcOffset <= 0 || pgcOffset >= len(data) {
		return ProgramChain{}, errors.New("pgc offset out of range")
	}

	pgcReader := bytes.NewReader(data[pgcOffset:])
	var hdr pgcHeader
	if err := binary.Read(pgcReader, binary.BigEndian, &hdr); err != nil {
		return ProgramChain{}, errors.Wrap(err, "reading pgc header")
	}

	programMap, err := readProgramMap(data, pgcOffset+int(hdr.ProgramMapOffset), int(hdr.NrOfPrograms))
	if err != nil {
		return ProgramChain{}, errors.Wrap(err, "reading pgc program map")
	}

	cells, err := readCellPlaybackTable(data, pgcOffset+int(hdr.CellPlaybackOffset), int(hdr.NrOfCells))
	if err != nil {
		return ProgramChain{}, errors.Wrap(err, "reading pgc cell playback table")
	}

	return ProgramChain{ProgramMap: programMap, Cells: cells}, nil
}

func readProgramMap(data []byte, offset, count int) ([]uint8, error) {
	if offset <= 0 || offset+count > len(data) {
		return nil, errors.New("program map offset out of range")
	}
	out := make([]uint8, count)
	copy(out, data[offset:offset+count])
	return out, nil
}

func readCellPlaybackTable(data []byte, offset, count int) ([]CellPlayback, error) {
	if offset <= 0 || offset >= len(data) {
		return nil, errors.New("cell playback offset out of range")
	}

	r := bytes.NewReader(data[offset:])

	cells := make([]CellPlayback, 0, count)
	for i := 0; i < count; i++ {
		var raw cellPlaybackRaw
		if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
			return nil, errors.Wrapf(err, "reading cell playback entry %d", i)
		}
		cells = append(cells, CellPlayback{
			FirstSector: raw.FirstSector,
			LastSector:  raw.LastSector,
		})
	}
	return cells, nil
}

// ChapterCount derives the chapter count for the title whose program chain
// is pgc, as the number of entries in its program map. This assumes a
// single PGC covers the whole title.
func ChapterCount(pgc ProgramChain) int {
	return len(pgc.ProgramMap)
}
