// Package fsdisc implements discio.Disc against a mounted DVD-Video volume:
// the VIDEO_TS directory is already a filesystem, so reading logical blocks
// is a plain os.File.ReadAt against whichever domain file the block belongs
// to, and IFO metadata is read by internal/ifo from the .IFO files it finds
// there.
package fsdisc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"dvdmirror/internal/discio"
	"dvdmirror/internal/dvderr"
	"dvdmirror/internal/ifo"
)

// Disc is a real mounted VIDEO_TS volume, opened by directory path.
type Disc struct {
	videoTS string

	vmgi      ifo.VMGI
	vmgiBytes []byte

	titleSets map[int]discio.TitleSetInventory
	vtsi      map[int]ifo.VTSI
	vtsiBytes map[int][]byte
}

// Open resolves root to a VIDEO_TS directory (accepting either the disc root
// or the VIDEO_TS directory itself) and parses VIDEO_TS.IFO and every
// VTS_xx_0.IFO found alongside it.
//
// Open reads only a directory tree: a raw block device path is not readable
// through it. IsBlockDevice and ProbeBlockDevice identify and size such a
// device but do not make it openable here.
func Open(root string) (*Disc, error) {
	videoTS := root
	if filepath.Base(filepath.Clean(root)) != "VIDEO_TS" {
		videoTS = filepath.Join(root, "VIDEO_TS")
	}

	info, err := os.Stat(videoTS)
	if err != nil {
		return nil, dvderr.New(dvderr.KindFileIO, videoTS, "stat VIDEO_TS", err)
	}
	if !info.IsDir() {
		return nil, dvderr.New(dvderr.KindStructure, videoTS, "open", errors.New("VIDEO_TS is not a directory"))
	}

	vmgiPath := filepath.Join(videoTS, "VIDEO_TS.IFO")
	vmgiBytes, err := os.ReadFile(vmgiPath)
	if err != nil {
		return nil, dvderr.New(dvderr.KindFileIO, vmgiPath, "read VIDEO_TS.IFO", err)
	}
	vmgi, err := ifo.ParseVMGI(vmgiBytes)
	if err != nil {
		return nil, dvderr.New(dvderr.KindStructure, vmgiPath, "parse VIDEO_TS.IFO", err)
	}

	d := &Disc{
		videoTS:   videoTS,
		vmgi:      vmgi,
		vmgiBytes: vmgiBytes,
		titleSets: map[int]discio.TitleSetInventory{},
		vtsi:      map[int]ifo.VTSI{},
		vtsiBytes: map[int][]byte{},
	}

	if err := d.loadInventory(discio.VMG); err != nil {
		return nil, err
	}
	for ts := 1; ts <= vmgi.TitleSetCount; ts++ {
		if err := d.loadVTS(ts); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// vtsInfoPath returns the path of a title set's VTS_xx_0.IFO file.
func (d *Disc) vtsInfoPath(titleSet int) string {
	return filepath.Join(d.videoTS, fmt.Sprintf("VTS_%02d_0.IFO", titleSet))
}

func (d *Disc) loadVTS(titleSet int) error {
	path := d.vtsInfoPath(titleSet)
	data, err := os.ReadFile(path)
	if err != nil {
		return dvderr.New(dvderr.KindFileIO, path, "read VTS info", err)
	}
	parsed, err := ifo.ParseVTSI(data)
	if err != nil {
		return dvderr.New(dvderr.KindStructure, path, "parse VTS info", err)
	}
	d.vtsi[titleSet] = parsed
	d.vtsiBytes[titleSet] = data

	return d.loadInventory(titleSet)
}

// loadInventory stats every domain file for titleSet and records their sizes.
func (d *Disc) loadInventory(titleSet int) error {
	inv := discio.TitleSetInventory{TitleSet: titleSet}

	infoPath := d.domainPath(titleSet, discio.DomainInfo, 0)
	if size, ok := d.statSize(infoPath); ok {
		inv.InfoSize = size
	}

	menuPath := d.domainPath(titleSet, discio.DomainMenu, 0)
	if size, ok := d.statSize(menuPath); ok {
		inv.MenuVOBSize = size
	}

	for part := 1; part <= 9; part++ {
		path := d.domainPath(titleSet, discio.DomainTitle, part)
		size, ok := d.statSize(path)
		if !ok {
			break
		}
		inv.TitleVOBSize = append(inv.TitleVOBSize, size)
	}

	d.titleSets[titleSet] = inv
	return nil
}

func (d *Disc) statSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}

// domainPath maps a (titleSet, domain, part) coordinate to the file the
// VIDEO_TS naming convention places it at.
func (d *Disc) domainPath(titleSet int, domain discio.Domain, part int) string {
	switch domain {
	case discio.DomainInfo:
		if titleSet == discio.VMG {
			return filepath.Join(d.videoTS, "VIDEO_TS.IFO")
		}
		return filepath.Join(d.videoTS, fmt.Sprintf("VTS_%02d_0.IFO", titleSet))
	case discio.DomainMenu:
		if titleSet == discio.VMG {
			return filepath.Join(d.videoTS, "VIDEO_TS.VOB")
		}
		return filepath.Join(d.videoTS, fmt.Sprintf("VTS_%02d_0.VOB", titleSet))
	case discio.DomainTitle:
		return filepath.Join(d.videoTS, fmt.Sprintf("VTS_%02d_%d.VOB", titleSet, part))
	default:
		return ""
	}
}

func (d *Disc) TitleSetCount() (int, error) {
	return d.vmgi.TitleSetCount + 1, nil
}

func (d *Disc) Inventory(titleSet int) (discio.TitleSetInventory, error) {
	inv, ok := d.titleSets[titleSet]
	if !ok {
		return discio.TitleSetInventory{}, errors.Errorf("fsdisc: no such title set %d", titleSet)
	}
	return inv, nil
}

// Titles builds every title's descriptor by joining the VMGI title table
// against each title's own title-set VTSI (chapter count and first PGC) and
// the VTS_ATRT attribute summary (stream counts, aspect ratio).
func (d *Disc) Titles() ([]discio.TitleDescriptor, error) {
	titles := make([]discio.TitleDescriptor, 0, len(d.vmgi.Titles))
	for i, entry := range d.vmgi.Titles {
		vtsi, ok := d.vtsi[entry.TitleSetNumber]
		if !ok {
			return nil, errors.Errorf("fsdisc: title %d references unknown title set %d", i+1, entry.TitleSetNumber)
		}

		chapterCount := ifo.ChapterCount(vtsi.PGC)

		var attrs ifo.VTSSummary
		if idx := entry.TitleSetNumber - 1; idx >= 0 && idx < len(d.vmgi.VTSAttrs) {
			attrs = d.vmgi.VTSAttrs[idx]
		}

		titles = append(titles, discio.TitleDescriptor{
			Title:            i + 1,
			TitleSet:         entry.TitleSetNumber,
			VTSTitleNumber:   entry.VTSTitleNumber,
			ChapterCount:     chapterCount,
			AngleCount:       entry.AngleCount,
			AspectRatio:      attrs.AspectRatio,
			AudioStreamCount: attrs.AudioStreamCount,
			MaxAudioChannels: attrs.MaxAudioChannels,
			SPStreamCount:    attrs.SPStreamCount,
			PGC: discio.PGC{
				ProgramMap: vtsi.PGC.ProgramMap,
				Cells:      convertCells(vtsi.PGC.Cells),
			},
		})
	}
	return titles, nil
}

func convertCells(cells []ifo.CellPlayback) []discio.CellPlayback {
	out := make([]discio.CellPlayback, len(cells))
	for i, c := range cells {
		out[i] = discio.CellPlayback{FirstSector: c.FirstSector, LastSector: c.LastSector}
	}
	return out
}

func (d *Disc) OpenDomain(titleSet int, domain discio.Domain, part int) (discio.BlockReader, error) {
	path := d.domainPath(titleSet, domain, part)
	f, err := os.Open(path)
	if err != nil {
		return nil, dvderr.New(dvderr.KindFileIO, path, "open domain", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dvderr.New(dvderr.KindFileIO, path, "stat domain", err)
	}
	return &reader{f: f, path: path, sizeBlocks: info.Size() / discio.BlockSize}, nil
}

func (d *Disc) OpenInfo(titleSet int) (discio.InfoReader, error) {
	if titleSet == discio.VMG {
		return &infoReader{data: d.vmgiBytes}, nil
	}
	data, ok := d.vtsiBytes[titleSet]
	if !ok {
		return nil, errors.Errorf("fsdisc: no such title set %d", titleSet)
	}
	return &infoReader{data: data}, nil
}

func (d *Disc) Close() error {
	return nil
}

type reader struct {
	f          *os.File
	path       string
	sizeBlocks int64
}

func (r *reader) Close() error {
	return r.f.Close()
}

// ReadBlocks reads whole logical blocks via ReadAt, clamping count to the
// file's remaining blocks and tolerating a trailing short read (an
// io.EOF on the last partial block boundary is not itself an error; any
// other read failure before a full block lands is).
func (r *reader) ReadBlocks(buf []byte, blockOffset int64, count int) (int, error) {
	remaining := r.sizeBlocks - blockOffset
	if remaining < 0 {
		remaining = 0
	}
	if int64(count) > remaining {
		count = int(remaining)
	}
	if count == 0 {
		return 0, nil
	}

	want := count * discio.BlockSize
	n, err := r.f.ReadAt(buf[:want], blockOffset*discio.BlockSize)
	got := n / discio.BlockSize
	if err != nil && got == 0 {
		return 0, dvderr.NewAt(dvderr.KindDiscRead, r.path, "read", blockOffset, err)
	}
	return got, nil
}

type infoReader struct {
	data []byte
}

func (r *infoReader) Close() error { return nil }

func (r *infoReader) ReadAll() ([]byte, error) {
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out, nil
}

// IsBlockDevice reports whether path names a raw block device rather than a
// mount-point directory.
func IsBlockDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeDevice != 0 && info.Mode()&os.ModeCharDevice == 0
}

// ProbeBlockDevice confirms path is a readable block device and returns its
// size in bytes via the BLKGETSIZE64 ioctl. It does not mount or parse the
// device; Open still requires a VIDEO_TS directory.
func ProbeBlockDevice(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, dvderr.New(dvderr.KindFileIO, path, "open block device", err)
	}
	defer f.Close()

	size, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		return 0, dvderr.New(dvderr.KindFileIO, path, "BLKGETSIZE64", err)
	}
	return int64(size), nil
}
