package compare_test

import (
	"os"
	"path/filepath"
	"testing"

	"dvdmirror/internal/compare"
	"dvdmirror/internal/discio"
	"dvdmirror/internal/discio/synthetic"
	"dvdmirror/internal/gapplan"
)

func writeMatchingFile(t *testing.T, d *synthetic.Disc, titleSet int, part int, blocks int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.vob")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r, err := d.OpenDomain(titleSet, discio.DomainTitle, part)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, blocks*discio.BlockSize)
	if _, err := r.ReadBlocks(buf, 0, int(blocks)); err != nil {
		t.Fatal(err)
	}
	f.Write(buf)
	return path
}

func TestRun_SucceedsOnExactMatch(t *testing.T) {
	d := synthetic.New(5)
	d.AddTitleSet(discio.TitleSetInventory{
		TitleSet:     1,
		TitleVOBSize: []int64{1000 * discio.BlockSize},
	}, nil)

	path := writeMatchingFile(t, d, 1, 1, 1000)
	out, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	r, _ := d.OpenDomain(1, discio.DomainTitle, 1)
	if err := compare.Run(r, out, path, 0, 1000); err != nil {
		t.Fatalf("expected match, got error: %v", err)
	}
}

func TestRun_DetectsMismatch(t *testing.T) {
	d := synthetic.New(5)
	d.AddTitleSet(discio.TitleSetInventory{
		TitleSet:     1,
		TitleVOBSize: []int64{1000 * discio.BlockSize},
	}, nil)

	path := writeMatchingFile(t, d, 1, 1, 1000)
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteAt([]byte{0xFF}, 500*discio.BlockSize)
	f.Close()

	out, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	r, _ := d.OpenDomain(1, discio.DomainTitle, 1)
	if err := compare.Run(r, out, path, 0, 1000); err == nil {
		t.Fatal("expected a mismatch error")
	}
}

func TestRun_DetectsExcessData(t *testing.T) {
	d := synthetic.New(5)
	d.AddTitleSet(discio.TitleSetInventory{
		TitleSet:     1,
		TitleVOBSize: []int64{1000 * discio.BlockSize},
	}, nil)

	path := writeMatchingFile(t, d, 1, 1, 1000)
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteAt([]byte{0x01}, 1000*discio.BlockSize)
	f.Close()

	out, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	r, _ := d.OpenDomain(1, discio.DomainTitle, 1)
	if err := compare.Run(r, out, path, 0, 1000); err == nil {
		t.Fatal("expected an excess-data error")
	}
}

func TestGapMap_RenderProducesBorderedGrid(t *testing.T) {
	m := compare.NewGapMap()
	plan := gapplan.Plan{}
	plan.Append(1000, 500)
	m.RecordFile(plan, 100000)

	rendered := m.Render()
	if len(rendered) == 0 {
		t.Fatal("expected non-empty render output")
	}

	lines := 0
	for _, c := range rendered {
		if c == '\n' {
			lines++
		}
	}
	if lines != 22 { // 20 grid rows + top and bottom borders
		t.Fatalf("expected 22 lines, got %d", lines)
	}
}

func TestGapMap_EmptyMapRendersAllBackground(t *testing.T) {
	m := compare.NewGapMap()
	rendered := m.Render()
	found := false
	for _, c := range rendered {
		if c == '#' {
			found = true
		}
	}
	if found {
		t.Fatal("expected no marks in an empty gap map")
	}
}
