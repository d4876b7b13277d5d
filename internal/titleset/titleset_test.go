package titleset_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/discio/synthetic"
	"dvdmirror/internal/mirrorcfg"
	"dvdmirror/internal/output"
	"dvdmirror/internal/titleset"
	"dvdmirror/internal/warnlist"
)

func TestCopy_FreshWritesInfoMenuAndTitleVOBs(t *testing.T) {
	d := synthetic.New(42)
	ifoBytes := bytes.Repeat([]byte{0xCA}, 2048)
	inv := discio.TitleSetInventory{
		TitleSet:     1,
		InfoSize:     int64(len(ifoBytes)),
		MenuVOBSize:  10 * discio.BlockSize,
		TitleVOBSize: []int64{100 * discio.BlockSize, 50 * discio.BlockSize},
	}
	d.AddTitleSet(inv, ifoBytes)

	dir := t.TempDir()
	root := output.Root(dir, "MYDISC")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := mirrorcfg.Default()
	warnings := warnlist.New()

	result, err := titleset.Copy(d, inv, root, cfg, warnings, nil)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if !result.MenuCopied {
		t.Fatal("expected menu VOB to be copied")
	}
	if result.TitleParts != 2 {
		t.Fatalf("expected 2 title parts, got %d", result.TitleParts)
	}
	if !warnings.Empty() {
		t.Fatalf("expected no warnings, got: %v", warnings.Errors())
	}

	ifoPath := output.InfoPath(root, 1, false)
	bupPath := output.InfoPath(root, 1, true)
	for _, p := range []string{ifoPath, bupPath} {
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("reading %s: %v", p, err)
		}
		if !bytes.Equal(got, ifoBytes) {
			t.Fatalf("%s content mismatch", p)
		}
	}

	menuPath := output.MenuVOBPath(root, 1)
	info, err := os.Stat(menuPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 10*discio.BlockSize {
		t.Fatalf("menu VOB size = %d, want %d", info.Size(), 10*discio.BlockSize)
	}

	for p := 1; p <= 2; p++ {
		path := output.TitleVOBPath(root, 1, p)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("title VOB part %d missing: %v", p, err)
		}
	}
}

func TestCopy_MenuSizeInvariantIsWarningNotFatal(t *testing.T) {
	d := synthetic.New(1)
	ifoBytes := []byte{0x01, 0x02}
	inv := discio.TitleSetInventory{
		TitleSet:     2,
		InfoSize:     int64(len(ifoBytes)),
		MenuVOBSize:  10*discio.BlockSize + 500, // not a multiple of 2048
		TitleVOBSize: nil,
	}
	d.AddTitleSet(discio.TitleSetInventory{
		TitleSet:     2,
		InfoSize:     int64(len(ifoBytes)),
		MenuVOBSize:  10 * discio.BlockSize, // backing file sized to whole blocks only
		TitleVOBSize: nil,
	}, ifoBytes)

	dir := t.TempDir()
	root := output.Root(dir, "MYDISC")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := mirrorcfg.Default()
	warnings := warnlist.New()

	_, err := titleset.Copy(d, inv, root, cfg, warnings, nil)
	if err != nil {
		t.Fatalf("expected menu size-invariant violation to be non-fatal, got: %v", err)
	}
	if warnings.Empty() {
		t.Fatal("expected a size-invariant warning for the menu VOB")
	}
}

func TestCopy_TitleVOBSizeInvariantIsFatal(t *testing.T) {
	d := synthetic.New(1)
	ifoBytes := []byte{0x01}
	inv := discio.TitleSetInventory{
		TitleSet:     3,
		InfoSize:     1,
		TitleVOBSize: []int64{100*discio.BlockSize + 7},
	}
	d.AddTitleSet(discio.TitleSetInventory{
		TitleSet:     3,
		InfoSize:     1,
		TitleVOBSize: []int64{100 * discio.BlockSize},
	}, ifoBytes)

	dir := t.TempDir()
	root := output.Root(dir, "MYDISC")
	os.MkdirAll(root, 0755)

	cfg := mirrorcfg.Default()
	warnings := warnlist.New()

	_, err := titleset.Copy(d, inv, root, cfg, warnings, nil)
	if err == nil {
		t.Fatal("expected a fatal size-invariant error for a title VOB")
	}
}

func TestCopy_RefreshModeFillsExistingGap(t *testing.T) {
	d := synthetic.New(9)
	ifoBytes := []byte{0xAA, 0xBB}
	inv := discio.TitleSetInventory{
		TitleSet:     1,
		InfoSize:     int64(len(ifoBytes)),
		TitleVOBSize: []int64{500 * discio.BlockSize},
	}
	d.AddTitleSet(inv, ifoBytes)

	dir := t.TempDir()
	root := output.Root(dir, "MYDISC")
	os.MkdirAll(root, 0755)

	// Pre-seed an existing title VOB that matches the disc except for a hole.
	r, err := d.OpenDomain(1, discio.DomainTitle, 1)
	if err != nil {
		t.Fatal(err)
	}
	path := output.TitleVOBPath(root, 1, 1)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, discio.BlockSize)
	for b := int64(0); b < 500; b++ {
		if b >= 50 && b < 70 {
			f.Write(make([]byte, discio.BlockSize))
			continue
		}
		r.ReadBlocks(buf, b, 1)
		f.Write(buf)
	}
	f.Close()

	// Info files must also pre-exist for the refresh-mode info duplication.
	for _, bup := range []bool{false, true} {
		os.WriteFile(output.InfoPath(root, 1, bup), []byte{0xAA, 0xBB}, 0644)
	}

	cfg := mirrorcfg.Default()
	cfg.Refresh = true
	warnings := warnlist.New()

	result, err := titleset.Copy(d, inv, root, cfg, warnings, nil)
	if err != nil {
		t.Fatalf("Copy (refresh) failed: %v", err)
	}
	if !result.RefreshedVOB {
		t.Fatal("expected RefreshedVOB to be true")
	}

	out, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	r2, _ := d.OpenDomain(1, discio.DomainTitle, 1)
	want := make([]byte, discio.BlockSize)
	got := make([]byte, discio.BlockSize)
	for b := int64(50); b < 70; b++ {
		r2.ReadBlocks(want, b, 1)
		out.ReadAt(got, b*discio.BlockSize)
		if !bytes.Equal(want, got) {
			t.Fatalf("block %d not refilled correctly", b)
		}
	}
}

func TestCopy_NoMenuVOBWhenSizeIsZero(t *testing.T) {
	d := synthetic.New(4)
	ifoBytes := []byte{0x01}
	inv := discio.TitleSetInventory{
		TitleSet:     5,
		InfoSize:     1,
		MenuVOBSize:  0,
		TitleVOBSize: []int64{10 * discio.BlockSize},
	}
	d.AddTitleSet(inv, ifoBytes)

	dir := t.TempDir()
	root := output.Root(dir, "MYDISC")
	os.MkdirAll(root, 0755)

	cfg := mirrorcfg.Default()
	warnings := warnlist.New()

	result, err := titleset.Copy(d, inv, root, cfg, warnings, nil)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if result.MenuCopied {
		t.Fatal("expected no menu VOB to be copied when size is zero")
	}
	if _, err := os.Stat(filepath.Join(root, "VTS_05_0.VOB")); !os.IsNotExist(err) {
		t.Fatal("expected no menu VOB file to be created")
	}
}
