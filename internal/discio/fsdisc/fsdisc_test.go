package fsdisc_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/discio/fsdisc"
)

// byteBuf is a small growable big-endian byte writer used to place VMGI/VTSI
// fields at exact on-disk offsets, the same layout internal/ifo reads.
type byteBuf struct{ b []byte }

func (w *byteBuf) grow(to int) {
	if len(w.b) < to {
		w.b = append(w.b, make([]byte, to-len(w.b))...)
	}
}
func (w *byteBuf) putU16(off int, v uint16) {
	w.grow(off + 2)
	binary.BigEndian.PutUint16(w.b[off:], v)
}
func (w *byteBuf) putU32(off int, v uint32) {
	w.grow(off + 4)
	binary.BigEndian.PutUint32(w.b[off:], v)
}
func (w *byteBuf) putU8(off int, v uint8) { w.grow(off + 1); w.b[off] = v }

const block = 2048

func buildVMGI(titleSet, vtsTitle, angles int) []byte {
	w := &byteBuf{}
	w.putU16(24, 1)  // NrOfTitleSets
	w.putU32(156, 1) // TTSrptSectorOffset -> block 1
	w.putU32(172, 2) // VTSAtrtSectorOffset -> block 2
	w.grow(412)

	base := 1 * block
	w.putU16(base, 1) // NrOfTitles
	entry := base + 8
	w.putU8(entry+1, uint8(angles))
	w.putU8(entry+6, uint8(titleSet))
	w.putU8(entry+7, uint8(vtsTitle))
	w.grow(entry + 12)

	attrBase := 2 * block
	w.putU16(attrBase+8, uint16(3)<<2) // aspect ratio code 3 in bits 3-2
	w.putU16(attrBase+10, 2)           // NrOfAudioStreams
	w.putU16(attrBase+12, 5)           // AudioAttr[0] -> 6 channels
	w.putU16(attrBase+92, 1)           // NrOfSubpStreams
	w.grow(attrBase + 288)

	return w.b
}

func buildVTSI(programMap []uint8, cells [][2]uint32) []byte {
	w := &byteBuf{}
	w.putU32(256, 1) // VTSPTTSrptSectorOffset -> block 1
	w.putU32(260, 2) // VTSPGCITSectorOffset -> block 2
	w.grow(380)

	pttBase := 1 * block
	w.putU16(pttBase, uint16(len(programMap)))
	w.grow(pttBase + 4)

	pgcitBase := 2 * block
	w.putU16(pgcitBase, 1)
	entry := pgcitBase + 8
	w.putU32(entry+4, 16)

	pgcOffset := pgcitBase + 16
	w.putU8(pgcOffset+2, uint8(len(programMap)))
	w.putU8(pgcOffset+3, uint8(len(cells)))
	w.putU16(pgcOffset+166, 172)
	w.putU16(pgcOffset+168, uint16(172+len(programMap)))

	mapOff := pgcOffset + 172
	for i, pgn := range programMap {
		w.putU8(mapOff+i, pgn)
	}

	cellOff := pgcOffset + 172 + len(programMap)
	for i, c := range cells {
		cb := cellOff + i*24
		w.putU32(cb+8, c[0])
		w.putU32(cb+20, c[1])
	}
	w.grow(cellOff + len(cells)*24)

	return w.b
}

func writeVideoTS(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "VIDEO_TS")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	vmgi := buildVMGI(1, 1, 1)
	if err := os.WriteFile(filepath.Join(dir, "VIDEO_TS.IFO"), vmgi, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "VIDEO_TS.VOB"), make([]byte, 0), 0644); err != nil {
		t.Fatal(err)
	}

	vtsi := buildVTSI([]uint8{1, 2}, [][2]uint32{{0, 99}, {100, 199}})
	if err := os.WriteFile(filepath.Join(dir, "VTS_01_0.IFO"), vtsi, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "VTS_01_0.VOB"), make([]byte, 10*block), 0644); err != nil {
		t.Fatal(err)
	}

	titleVOB := make([]byte, 200*block)
	for i := range titleVOB {
		titleVOB[i] = byte(i)
	}
	if err := os.WriteFile(filepath.Join(dir, "VTS_01_1.VOB"), titleVOB, 0644); err != nil {
		t.Fatal(err)
	}

	return dir
}

func TestOpen_ParsesInventoryAndTitles(t *testing.T) {
	dir := writeVideoTS(t)

	d, err := fsdisc.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	count, err := d.TitleSetCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 { // the VMG domain plus one title set
		t.Fatalf("TitleSetCount = %d, want 2", count)
	}

	inv, err := d.Inventory(1)
	if err != nil {
		t.Fatal(err)
	}
	if inv.MenuVOBSize != 10*block {
		t.Fatalf("MenuVOBSize = %d, want %d", inv.MenuVOBSize, 10*block)
	}
	if len(inv.TitleVOBSize) != 1 || inv.TitleVOBSize[0] != 200*block {
		t.Fatalf("unexpected TitleVOBSize: %v", inv.TitleVOBSize)
	}

	titles, err := d.Titles()
	if err != nil {
		t.Fatal(err)
	}
	if len(titles) != 1 {
		t.Fatalf("expected 1 title, got %d", len(titles))
	}
	title := titles[0]
	if title.ChapterCount != 2 {
		t.Fatalf("ChapterCount = %d, want 2", title.ChapterCount)
	}
	if title.AspectRatio != 3 {
		t.Fatalf("AspectRatio = %d, want 3", title.AspectRatio)
	}
	if title.MaxAudioChannels != 6 {
		t.Fatalf("MaxAudioChannels = %d, want 6", title.MaxAudioChannels)
	}
}

func TestOpenDomain_ReadsTitleVOBBlocks(t *testing.T) {
	dir := writeVideoTS(t)

	d, err := fsdisc.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	r, err := d.OpenDomain(1, discio.DomainTitle, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	buf := make([]byte, 5*discio.BlockSize)
	got, err := r.ReadBlocks(buf, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Fatalf("got = %d, want 5", got)
	}

	got, err = r.ReadBlocks(buf, 198, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("trailing short read: got = %d, want 2", got)
	}
}

func TestOpenInfo_ReturnsRawVTSIBytes(t *testing.T) {
	dir := writeVideoTS(t)

	d, err := fsdisc.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	r, err := d.OpenInfo(1)
	if err != nil {
		t.Fatal(err)
	}
	data, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty VTSI bytes")
	}
}
