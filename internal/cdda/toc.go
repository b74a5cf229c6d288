package cdda

import "strings"

// TrackType indicates whether a track is audio or data
type TrackType int

const (
	TrackTypeAudio TrackType = iota
	TrackTypeData
)

func (t TrackType) String() string {
	if t == TrackTypeData {
		return "data"
	}
	return "audio"
}

// TrackTypeForMode maps a track mode token (AUDIO, MODE1, MODE2_FORM1, ...)
// to a TrackType. Anything other than AUDIO is data.
func TrackTypeForMode(mode string) TrackType {
	if strings.EqualFold(strings.TrimSpace(mode), "AUDIO") {
		return TrackTypeAudio
	}
	return TrackTypeData
}

// Track represents a single track from the CD TOC
type Track struct {
	Num  int
	LBA  int
	Type TrackType
}

// IsAudio returns true if this is an audio track
func (t Track) IsAudio() bool {
	return t.Type == TrackTypeAudio
}

// TOC represents a CD Table of Contents.
// LBAs are absolute disc addresses, lead-in included.
type TOC struct {
	FirstTrack int
	LastTrack  int
	LeadoutLBA int
	Tracks     []Track
}

// TrackFrames returns the length in frames of the track at position i,
// measured to the next track's LBA or to the lead-out for the last one.
func (toc TOC) TrackFrames(i int) int {
	if i < 0 || i >= len(toc.Tracks) {
		return 0
	}
	if i+1 < len(toc.Tracks) {
		return toc.Tracks[i+1].LBA - toc.Tracks[i].LBA
	}
	return toc.LeadoutLBA - toc.Tracks[i].LBA
}

// AudioTracks returns the number of audio tracks.
func (toc TOC) AudioTracks() int {
	n := 0
	for _, t := range toc.Tracks {
		if t.IsAudio() {
			n++
		}
	}
	return n
}
