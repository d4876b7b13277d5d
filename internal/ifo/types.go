// Package ifo reads the subset of the DVD-Video VMGI/VTSI on-disk layout
// needed to populate a discio.TitleSetInventory and discio.TitleDescriptor:
// the title search pointer table, the per-VTS attribute table, and a single
// program chain's program map and cell playback table.
//
// Structures are read with encoding/binary.Read at binary.BigEndian, the
// byte order DVD-Video actually specifies.
package ifo

// blockSize matches discio.BlockSize; IFO offsets are given in 2048-byte
// units on disc, exactly like VOB addressing.
const blockSize = 2048

// commonHeader is the fixed-size header shared by VMGI and VTSI: the
// 12-byte identifier string, the address (in blocks) of the last byte of
// the title set, and the last byte address of the IFO itself.
type commonHeader struct {
	Identifier       [12]byte
	LastSector       uint32
	_                [12]byte
	LastIFOByte      uint32
	_                [1]byte
	VersionNumber    uint8
	VMGCategory      uint32
	_                [34]byte
}

// vmgiMat is the subset of the VMG Management Table this package reads:
// the number of title sets and the offsets (in blocks, relative to the
// start of VIDEO_TS.IFO) of the title search pointer table (TT_SRPT) and
// the per-VTS attribute table (VTS_ATRT).
type vmgiMat struct {
	NrOfVolumes       uint16
	VolumeNumber      uint16
	SideID            uint8
	_                 [19]byte
	NrOfTitleSets      uint16
	_                  [130]byte
	TTSrptSectorOffset uint32
	_                  [12]byte
	VTSAtrtSectorOffset uint32
	_                  [236]byte
}

// ttSrptHeader precedes the title search pointer table: the number of
// titles and the table's byte length.
type ttSrptHeader struct {
	NrOfTitles uint16
	_          uint16
	EndByte    uint32
}

// titleInfoRaw is one TT_SRPT entry: playback type, number of angles, the
// owning title set, and the VTS-title ordinal.
type titleInfoRaw struct {
	TitlePlaybackType uint8
	NrOfAngles        uint8
	NrOfPTTs          uint16
	ParentalIDMask    uint16
	TitleSetNumber    uint8
	VTSTitleNumber    uint8
	TitleSetStartSect uint32
}

// vtsAttributesRaw is one VTS_ATRT entry's attribute summary: stream
// attributes for the main title set domain, enough to recover audio/
// subpicture stream counts, channel counts and the video aspect ratio.
type vtsAttributesRaw struct {
	LastByte             uint32
	VTSCatApp            uint32
	VideoAttr            videoAttrRaw
	NrOfAudioStreams     uint16
	AudioAttr            [8]audioAttrRaw
	_                    [16]byte
	NrOfSubpStreams      uint16
	SubpAttr             [32][6]byte
	_                    [2]byte
}

type videoAttrRaw struct {
	Flags       uint16 // includes the 2-bit aspect ratio code
}

// AspectRatio extracts the 2-bit aspect ratio code from the packed video
// attribute flags (bits 3-2 of the big-endian uint16, matching the
// video_attr_t layout).
func (v videoAttrRaw) AspectRatio() uint8 {
	return uint8((v.Flags >> 2) & 0x3)
}

type audioAttrRaw struct {
	Flags        uint16
	LangCode     uint16
	_            uint8
	CodeExtension uint8
	_            uint16
}

// NumberOfChannels extracts the 3-bit channel count field (bits 2-0 of the
// low byte) and returns the real channel count (field + 1).
func (a audioAttrRaw) NumberOfChannels() int {
	return int(a.Flags&0x7) + 1
}

// vtsiMat is the VTS Management Table: the offset of the title program
// chain table (VTS_PGCIT) and the per-title PTT search table (VTS_PTT_SRPT).
type vtsiMat struct {
	_                      [256]byte
	VTSPTTSrptSectorOffset uint32
	VTSPGCITSectorOffset   uint32
	_                      [116]byte
}

// vtsPttSrptHeader precedes the PTT search pointer table.
type vtsPttSrptHeader struct {
	NrOfTitles uint16
	_          uint16
}

// pgcHeader is the fixed portion of a pgc_t: counts and the in-block
// offsets (relative to the start of this PGC) of the program map and the
// cell playback table.
type pgcHeader struct {
	_                      uint16
	NrOfPrograms           uint8
	NrOfCells              uint8
	PlaybackTime           [4]byte
	ProhibitedUserOps      uint32
	AudioControl           [8]uint16
	SubpControl            [32]uint16
	NextPGCNr              uint16
	PrevPGCNr              uint16
	GoupPGCNr              uint16
	PGPlaybackMode         uint8
	StillTime              uint8
	Palette                [16]uint32
	CommandTableOffset     uint16
	ProgramMapOffset       uint16
	CellPlaybackOffset     uint16
	CellPositionOffset     uint16
}

// cellPlaybackRaw is one cell_playback_t entry: 24 bytes, of which this
// package only needs the first and last sector.
type cellPlaybackRaw struct {
	CatAngle            uint16
	StillTime           uint8
	CellCmdNr           uint8
	PlaybackTime        [4]byte
	FirstSector         uint32
	FirstILVUEndSector  uint32
	LastVOBUStartSector uint32
	LastSector          uint32
}

// pgcitSrpHeader precedes the PGCI search pointer table (VTS_PGCIT).
type pgcitSrpHeader struct {
	NrOfPGCI uint16
	_        uint16
	EndByte  uint32
}

// pgcitSrpEntry is one PGCI search pointer: the category/count byte and the
// byte offset (relative to the start of VTS_PGCIT) of the pgc_t it points at.
type pgcitSrpEntry struct {
	PGCategory uint32
	PGCOffset  uint32
}
