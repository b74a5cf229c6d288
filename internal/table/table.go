// Package table holds the index model of a disc image: tracks, their
// indexes and the CD-TEXT attached to the disc and to each track.
//
// All offsets are in CD frames (1/75 s) counted from the start of the
// disc image, not from the start of any source file.
package table

import (
	"slices"

	"github.com/binaryphile/crostini-toc/internal/cdda"
)

// CDTextFields lists the CD-TEXT keys that are recognized. Keys outside
// this set are not stored.
var CDTextFields = []string{
	"ARRANGER",
	"COMPOSER",
	"DISC_ID",
	"GENRE",
	"MESSAGE",
	"ISRC",
	"PERFORMER",
	"SONGWRITER",
	"TITLE",
	"UPC_EAN",
}

// IsCDTextField reports whether key is a recognized CD-TEXT key.
func IsCDTextField(key string) bool {
	return slices.Contains(CDTextFields, key)
}

// Index is a single timing marker within a track.
type Index struct {
	// Path is the source file the marker was read against.
	Path string `json:"path"`

	// Relative is an absolute offset in frames from the start of the
	// disc image. The name follows the transcript format's convention.
	Relative int `json:"relative"`

	// Counter identifies the contiguous source segment the marker lies
	// in. Equal counters mean same file with no silence or file switch
	// in between; different counters promise nothing.
	Counter int `json:"counter"`
}

// Track is one playable track.
type Track struct {
	Number  int               `json:"number"`
	Mode    string            `json:"mode,omitempty"`
	ISRC    string            `json:"isrc,omitempty"`
	CDText  map[string]string `json:"cdtext,omitempty"`
	Indexes map[int]*Index    `json:"indexes"`
}

// NewTrack returns an empty track with the given number.
func NewTrack(number int) *Track {
	return &Track{
		Number:  number,
		CDText:  make(map[string]string),
		Indexes: make(map[int]*Index),
	}
}

// SetIndex records index number n. Index 0 is the pre-gap start, 1 the
// nominal track start, and 2 and up are sub-indexes.
func (t *Track) SetIndex(n int, path string, relative, counter int) *Index {
	idx := &Index{Path: path, Relative: relative, Counter: counter}
	t.Indexes[n] = idx
	return idx
}

// GetIndex returns index n, or nil if it was never set.
func (t *Track) GetIndex(n int) *Index {
	return t.Indexes[n]
}

// IndexNumbers returns the defined index numbers in ascending order.
func (t *Track) IndexNumbers() []int {
	nums := make([]int, 0, len(t.Indexes))
	for n := range t.Indexes {
		nums = append(nums, n)
	}
	slices.Sort(nums)
	return nums
}

// IsAudio reports whether the track mode is AUDIO.
func (t *Track) IsAudio() bool {
	return cdda.TrackTypeForMode(t.Mode) == cdda.TrackTypeAudio
}

// IndexTable is the parsed model of a whole disc.
type IndexTable struct {
	Catalog string            `json:"catalog,omitempty"`
	CDText  map[string]string `json:"cdtext,omitempty"`
	Tracks  []*Track          `json:"tracks"`

	// Leadout is the total length of the disc in frames, as declared
	// by the source records. Zero when unknown.
	Leadout int `json:"leadout"`
}

// New returns an empty IndexTable.
func New() *IndexTable {
	return &IndexTable{CDText: make(map[string]string)}
}

// Position returns the zero-based position of track in the table, or -1.
func (it *IndexTable) Position(track *Track) int {
	return slices.Index(it.Tracks, track)
}

// TOC converts the table to a cdda.TOC for disc ID computation.
// Track LBAs are index 1 plus the 150-frame lead-in. Tracks without an
// index 1 are skipped.
func (it *IndexTable) TOC() cdda.TOC {
	toc := cdda.TOC{
		LeadoutLBA: it.Leadout + cdda.LeadIn,
	}

	for _, track := range it.Tracks {
		idx := track.GetIndex(1)
		if idx == nil {
			continue
		}
		toc.Tracks = append(toc.Tracks, cdda.Track{
			Num:  track.Number,
			LBA:  idx.Relative + cdda.LeadIn,
			Type: cdda.TrackTypeForMode(track.Mode),
		})
	}

	if len(toc.Tracks) > 0 {
		toc.FirstTrack = toc.Tracks[0].Num
		toc.LastTrack = toc.Tracks[len(toc.Tracks)-1].Num
	}

	return toc
}

// Span returns the disc distance in frames from track's index 1 to the
// next track's index 1, or to the leadout for the last track. Unlike a
// track length it ignores source segments, so it is only an estimate.
// Zero when track is not in the table or has no index 1.
func (it *IndexTable) Span(track *Track) int {
	if it.Position(track) < 0 {
		return 0
	}

	toc := it.TOC()
	for i, t := range toc.Tracks {
		if t.Num == track.Number {
			return toc.TrackFrames(i)
		}
	}
	return 0
}
