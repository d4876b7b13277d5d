package output_test

import (
	"os"
	"path/filepath"
	"testing"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/discio/synthetic"
	"dvdmirror/internal/mirrorcfg"
	"dvdmirror/internal/output"
)

func TestInfoPath_VMGUsesVideoTSName(t *testing.T) {
	if got := output.InfoPath("/root", discio.VMG, false); got != filepath.Join("/root", "VIDEO_TS.IFO") {
		t.Fatalf("got %s", got)
	}
	if got := output.InfoPath("/root", discio.VMG, true); got != filepath.Join("/root", "VIDEO_TS.BUP") {
		t.Fatalf("got %s", got)
	}
}

func TestInfoPath_TitleSetNaming(t *testing.T) {
	if got := output.InfoPath("/root", 3, false); got != filepath.Join("/root", "VTS_03_0.IFO") {
		t.Fatalf("got %s", got)
	}
}

func TestTitleVOBPath(t *testing.T) {
	if got := output.TitleVOBPath("/root", 1, 2); got != filepath.Join("/root", "VTS_01_2.VOB") {
		t.Fatalf("got %s", got)
	}
}

func TestOpen_RefreshRefusesNonRegularFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "adir")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := output.Open(sub, output.Refresh); err == nil {
		t.Fatal("expected an error opening a directory in refresh mode")
	}
}

func TestPartSplitter_SplitsAt1GiB(t *testing.T) {
	dir := t.TempDir()
	d := synthetic.New(7)
	d.AddTitleSet(discio.TitleSetInventory{
		TitleSet:     1,
		TitleVOBSize: []int64{600000 * discio.BlockSize},
	}, nil)
	r, err := d.OpenDomain(1, discio.DomainTitle, 1)
	if err != nil {
		t.Fatal(err)
	}

	splitter := output.NewPartSplitter(dir, 1, output.Fresh)
	if err := output.Stream(r, splitter, 0, 600000, mirrorcfg.Abort, "vts01", nil); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if err := splitter.CloseAll(); err != nil {
		t.Fatal(err)
	}

	parts := splitter.Parts()
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}

	info1, _ := os.Stat(parts[0].Path)
	info2, _ := os.Stat(parts[1].Path)

	if info1.Size() != output.MaxPartBlocks*discio.BlockSize {
		t.Fatalf("part 1 size = %d, want %d", info1.Size(), int64(output.MaxPartBlocks)*discio.BlockSize)
	}
	wantTail := int64(600000-output.MaxPartBlocks) * discio.BlockSize
	if info2.Size() != wantTail {
		t.Fatalf("part 2 size = %d, want %d", info2.Size(), wantTail)
	}
}

func TestPartSplitter_SinglePartNoSplit(t *testing.T) {
	dir := t.TempDir()
	d := synthetic.New(7)
	d.AddTitleSet(discio.TitleSetInventory{
		TitleSet:     1,
		TitleVOBSize: []int64{10000 * discio.BlockSize},
	}, nil)
	r, _ := d.OpenDomain(1, discio.DomainTitle, 1)

	splitter := output.NewPartSplitter(dir, 1, output.Fresh)
	if err := output.Stream(r, splitter, 0, 10000, mirrorcfg.Abort, "vts01", nil); err != nil {
		t.Fatal(err)
	}
	splitter.CloseAll()

	parts := splitter.Parts()
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	info, _ := os.Stat(parts[0].Path)
	if info.Size() != 10000*discio.BlockSize {
		t.Fatalf("size = %d, want %d", info.Size(), 10000*discio.BlockSize)
	}
}
