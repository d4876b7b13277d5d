// Package synthetic implements discio.Disc entirely in memory, generating
// deterministic block content so tests can assert byte-exactness without
// real media.
package synthetic

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"dvdmirror/internal/discio"
)

// Fault simulates a patch of unreadable sectors within one domain file: any
// ReadBlocks request whose range intersects [Start, End) is truncated to
// stop at Start (or returns 0 with an error, if NegativeRead is set and the
// request begins inside the fault).
type Fault struct {
	Domain       discio.Domain
	Part         int
	Start, End   int64
	NegativeRead bool
}

type domainFile struct {
	sizeBlocks int64
	fault      *Fault
	blank      map[int64]bool // blocks forced to all-zero content, for gap tests
}

// Disc is an in-memory disc built with New, AddTitleSet and AddTitle.
type Disc struct {
	titleSetCount int
	inventories   map[int]discio.TitleSetInventory
	titles        []discio.TitleDescriptor
	ifoBytes      map[int][]byte
	files         map[int]map[discio.Domain]map[int]*domainFile // titleSet -> domain -> part -> file
	seed          uint64
}

// New returns an empty synthetic disc. No title set is present, not even
// the VMG domain (title set 0), until AddTitleSet registers it.
func New(seed uint64) *Disc {
	return &Disc{
		inventories: map[int]discio.TitleSetInventory{},
		ifoBytes:    map[int][]byte{},
		files:       map[int]map[discio.Domain]map[int]*domainFile{},
		seed:        seed,
	}
}

// AddTitleSet registers a title set's inventory (IFO size, menu VOB size,
// title-VOB part sizes) and raw IFO bytes. Part sizes and the menu size must
// be multiples of discio.BlockSize.
func (d *Disc) AddTitleSet(inv discio.TitleSetInventory, ifoBytes []byte) {
	d.inventories[inv.TitleSet] = inv
	d.ifoBytes[inv.TitleSet] = ifoBytes
	if inv.TitleSet+1 > d.titleSetCount {
		d.titleSetCount = inv.TitleSet + 1
	}

	domains := map[discio.Domain]map[int]*domainFile{
		discio.DomainMenu: {0: {sizeBlocks: inv.MenuVOBSize / discio.BlockSize}},
	}
	title := map[int]*domainFile{}
	for i, size := range inv.TitleVOBSize {
		title[i+1] = &domainFile{sizeBlocks: size / discio.BlockSize}
	}
	domains[discio.DomainTitle] = title
	d.files[inv.TitleSet] = domains
}

// AddTitle registers a title descriptor for the Feature Guesser and Chapter
// Extractor.
func (d *Disc) AddTitle(td discio.TitleDescriptor) {
	d.titles = append(d.titles, td)
}

// SetFault injects a simulated hole into a title set's domain/part file.
func (d *Disc) SetFault(titleSet int, f Fault) {
	file := d.files[titleSet][f.Domain][f.Part]
	if file == nil {
		return
	}
	fCopy := f
	file.fault = &fCopy
}

// BlankBlock marks an absolute block index within a domain/part as
// all-zero content (rather than the deterministic generated pattern), so a
// copy read from this disc carries a hole like a partially-mirrored output
// file.
func (d *Disc) BlankBlock(titleSet int, dom discio.Domain, part int, block int64) {
	file := d.files[titleSet][dom][part]
	if file == nil {
		return
	}
	if file.blank == nil {
		file.blank = map[int64]bool{}
	}
	file.blank[block] = true
}

func (d *Disc) TitleSetCount() (int, error) {
	return d.titleSetCount, nil
}

func (d *Disc) Inventory(titleSet int) (discio.TitleSetInventory, error) {
	inv, ok := d.inventories[titleSet]
	if !ok {
		return discio.TitleSetInventory{}, errors.Errorf("synthetic: no such title set %d", titleSet)
	}
	return inv, nil
}

func (d *Disc) Titles() ([]discio.TitleDescriptor, error) {
	return d.titles, nil
}

func (d *Disc) OpenDomain(titleSet int, domain discio.Domain, part int) (discio.BlockReader, error) {
	domains, ok := d.files[titleSet]
	if !ok {
		return nil, errors.Errorf("synthetic: no such title set %d", titleSet)
	}
	parts, ok := domains[domain]
	if !ok {
		return nil, errors.Errorf("synthetic: title set %d has no domain %v", titleSet, domain)
	}
	file, ok := parts[part]
	if !ok {
		return nil, errors.Errorf("synthetic: title set %d domain %v has no part %d", titleSet, domain, part)
	}
	return &reader{disc: d, titleSet: titleSet, domain: domain, part: part, file: file}, nil
}

func (d *Disc) OpenInfo(titleSet int) (discio.InfoReader, error) {
	data, ok := d.ifoBytes[titleSet]
	if !ok {
		return nil, errors.Errorf("synthetic: no such title set %d", titleSet)
	}
	return &infoReader{data: data}, nil
}

func (d *Disc) Close() error { return nil }

// genBlock produces deterministic, disc-unique content for one absolute
// (titleSet, domain, part, block) coordinate so copies can be verified
// byte-for-byte.
func (d *Disc) genBlock(titleSet int, domain discio.Domain, part int, block int64) []byte {
	buf := make([]byte, discio.BlockSize)
	var h uint64 = d.seed ^ 0x9E3779B97F4A7C15
	h ^= uint64(titleSet) * 0x100000001B3
	h ^= uint64(domain) * 0x1B3
	h ^= uint64(part) * 0x13
	h ^= uint64(block) * 0x2545F4914F6CDD1D

	for i := 0; i < discio.BlockSize; i += 8 {
		h ^= h << 13
		h ^= h >> 7
		h ^= h << 17
		binary.BigEndian.PutUint64(buf[i:i+8], h)
	}
	return buf
}

type reader struct {
	disc     *Disc
	titleSet int
	domain   discio.Domain
	part     int
	file     *domainFile
}

func (r *reader) Close() error { return nil }

func (r *reader) ReadBlocks(buf []byte, blockOffset int64, count int) (int, error) {
	remaining := r.file.sizeBlocks - blockOffset
	if remaining < 0 {
		remaining = 0
	}
	if int64(count) > remaining {
		count = int(remaining)
	}

	if f := r.file.fault; f != nil {
		reqEnd := blockOffset + int64(count)
		if blockOffset < f.End && reqEnd > f.Start {
			if blockOffset >= f.Start {
				if f.NegativeRead {
					return 0, errors.New("synthetic: simulated I/O failure")
				}
				return 0, nil
			}
			count = int(f.Start - blockOffset)
		}
	}

	for i := 0; i < count; i++ {
		block := blockOffset + int64(i)
		var content []byte
		if r.file.blank != nil && r.file.blank[block] {
			content = make([]byte, discio.BlockSize)
		} else {
			content = r.disc.genBlock(r.titleSet, r.domain, r.part, block)
		}
		copy(buf[i*discio.BlockSize:(i+1)*discio.BlockSize], content)
	}
	return count, nil
}

type infoReader struct {
	data []byte
	off  int
}

func (r *infoReader) Close() error { return nil }

func (r *infoReader) ReadAll() ([]byte, error) {
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out, nil
}

var _ io.Closer = (*reader)(nil)
