package ifo

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// TitleEntry is one row of the VMG title search pointer table (TT_SRPT).
type TitleEntry struct {
	TitleSetNumber int
	VTSTitleNumber int
	AngleCount     int
}

// VTSSummary is the per-title-set attribute summary read from VTS_ATRT,
// enough for the Feature Guesser's signals and its dual-disc aspect-ratio
// tie-break.
type VTSSummary struct {
	AudioStreamCount int
	MaxAudioChannels int
	SPStreamCount    int
	AspectRatio      uint8
}

// VMGI is the parsed subset of VIDEO_TS.IFO needed by this repo.
type VMGI struct {
	TitleSetCount int
	Titles        []TitleEntry
	VTSAttrs      []VTSSummary // index 0 is title set 1
}

// ParseVMGI reads the Video Manager Information file, already loaded
// entirely into memory (it is always small).
func ParseVMGI(data []byte) (VMGI, error) {
	var hdr commonHeader
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &hdr); err != nil {
		return VMGI{}, errors.Wrap(err, "reading VMGI common header")
	}

	var mat vmgiMat
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &mat); err != nil {
		return VMGI{}, errors.Wrap(err, "reading VMGI management table")
	}

	titles, err := readTitleTable(data, int(mat.TTSrptSectorOffset)*blockSize)
	if err != nil {
		return VMGI{}, errors.Wrap(err, "reading TT_SRPT")
	}

	attrs, err := readVTSAttrTable(data, int(mat.VTSAtrtSectorOffset)*blockSize, int(mat.NrOfTitleSets))
	if err != nil {
		return VMGI{}, errors.Wrap(err, "reading VTS_ATRT")
	}

	return VMGI{
		TitleSetCount: int(mat.NrOfTitleSets),
		Titles:        titles,
		VTSAttrs:      attrs,
	}, nil
}

func readTitleTable(data []byte, offset int) ([]TitleEntry, error) {
	if offset <= 0 || offset >= len(data) {
		return nil, errors.New("TT_SRPT offset out of range")
	}

	r := bytes.NewReader(data[offset:])

	var hdr ttSrptHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "reading TT_SRPT header")
	}

	entries := make([]TitleEntry, 0, hdr.NrOfTitles)
	for i := 0; i < int(hdr.NrOfTitles); i++ {
		var raw titleInfoRaw
		if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
			return nil, errors.Wrapf(err, "reading TT_SRPT entry %d", i)
		}
		entries = append(entries, TitleEntry{
			TitleSetNumber: int(raw.TitleSetNumber),
			VTSTitleNumber: int(raw.VTSTitleNumber),
			AngleCount:     int(raw.NrOfAngles),
		})
	}
	return entries, nil
}

func readVTSAttrTable(data []byte, offset, count int) ([]VTSSummary, error) {
	if count == 0 {
		return nil, nil
	}
	if offset <= 0 || offset >= len(data) {
		return nil, errors.New("VTS_ATRT offset out of range")
	}

	r := bytes.NewReader(data[offset:])

	summaries := make([]VTSSummary, 0, count)
	for i := 0; i < count; i++ {
		var raw vtsAttributesRaw
		if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
			return nil, errors.Wrapf(err, "reading VTS_ATRT entry %d", i)
		}

		maxChannels := 0
		for a := 0; a < int(raw.NrOfAudioStreams) && a < len(raw.AudioAttr); a++ {
			if ch := raw.AudioAttr[a].NumberOfChannels(); ch > maxChannels {
				maxChannels = ch
			}
		}

		summaries = append(summaries, VTSSummary{
			AudioStreamCount: int(raw.NrOfAudioStreams),
			MaxAudioChannels: maxChannels,
			SPStreamCount:    int(raw.NrOfSubpStreams),
			AspectRatio:      raw.VideoAttr.AspectRatio(),
		})
	}
	return summaries, nil
}
