package toc

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/binaryphile/crostini-toc/internal/cdda"
)

// Record is one classified line record. The concrete types are CDText,
// Catalog, TrackHeader, ISRC, Silence, FileRef, PregapStart and SubIndex.
type Record interface {
	record()
}

// CDText is a KEY "value" pair. It may appear anywhere, including
// inside nested CD_TEXT blocks, and is not yet checked against the
// recognized key set.
type CDText struct {
	Key   string
	Value string
}

// Catalog is a CATALOG "digits" header record.
type Catalog struct {
	Number string
}

// TrackHeader is a TRACK <mode> record.
type TrackHeader struct {
	Mode string
}

// ISRC is an ISRC "code" record.
type ISRC struct {
	Code string
}

// Silence is a SILENCE <length> record. It marks audio that precedes the
// first indexed track (a hidden track) or any other silent stretch.
type Silence struct {
	Length int
}

// FileRef is a FILE "name" <start> <length> record.
type FileRef struct {
	Name   string
	Start  int
	Length int
}

// PregapStart is a START <length> record.
type PregapStart struct {
	Length int
}

// SubIndex is an INDEX <offset> record.
type SubIndex struct {
	Offset int
}

func (CDText) record()      {}
func (Catalog) record()     {}
func (TrackHeader) record() {}
func (ISRC) record()        {}
func (Silence) record()     {}
func (FileRef) record()     {}
func (PregapStart) record() {}
func (SubIndex) record()    {}

var (
	// shared between header and tracks, unanchored so that it also
	// matches inside indented CD_TEXT blocks
	cdtextRe = regexp.MustCompile(`(\w+) "(.+)"`)

	// header
	catalogRe = regexp.MustCompile(`^CATALOG "(\d+)"$`)

	// track body
	trackRe   = regexp.MustCompile(`^TRACK\s(.+)$`)
	isrcRe    = regexp.MustCompile(`^ISRC "(\w+)"$`)
	silenceRe = regexp.MustCompile(`^SILENCE\s(.*)$`)
	fileRe    = regexp.MustCompile(`^FILE\s+"(.*)"\s+(.+)\s(.+)$`)
	startRe   = regexp.MustCompile(`^START\s(.*)$`)
	indexRe   = regexp.MustCompile(`^INDEX\s(.+)$`)
)

// Classify matches one line against every record pattern and returns
// the records it matched, in the order they must be applied: CD-TEXT,
// catalog, track, ISRC, silence, file, start, index.
//
// Trailing whitespace is ignored. A line that matches no pattern yields
// no records and no errors. A record whose duration does not parse is
// dropped and reported in errs.
func Classify(line string) (records []Record, errs []error) {
	line = strings.TrimRightFunc(line, unicode.IsSpace)

	if m := cdtextRe.FindStringSubmatch(line); m != nil {
		records = append(records, CDText{Key: m[1], Value: m[2]})
	}

	if m := catalogRe.FindStringSubmatch(line); m != nil {
		records = append(records, Catalog{Number: m[1]})
	}

	if m := trackRe.FindStringSubmatch(line); m != nil {
		records = append(records, TrackHeader{Mode: m[1]})
	}

	if m := isrcRe.FindStringSubmatch(line); m != nil {
		records = append(records, ISRC{Code: m[1]})
	}

	if m := silenceRe.FindStringSubmatch(line); m != nil {
		length, err := cdda.MSFToFrames(m[1])
		if err != nil {
			errs = append(errs, fmt.Errorf("SILENCE length: %w", err))
		} else {
			records = append(records, Silence{Length: length})
		}
	}

	if m := fileRe.FindStringSubmatch(line); m != nil {
		start, err := cdda.MSFToFrames(m[2])
		if err != nil {
			errs = append(errs, fmt.Errorf("FILE start: %w", err))
		}
		length, lerr := cdda.MSFToFrames(m[3])
		if lerr != nil {
			errs = append(errs, fmt.Errorf("FILE length: %w", lerr))
		}
		if err == nil && lerr == nil {
			records = append(records, FileRef{Name: m[1], Start: start, Length: length})
		}
	}

	if m := startRe.FindStringSubmatch(line); m != nil {
		length, err := cdda.MSFToFrames(m[1])
		if err != nil {
			errs = append(errs, fmt.Errorf("START length: %w", err))
		} else {
			records = append(records, PregapStart{Length: length})
		}
	}

	if m := indexRe.FindStringSubmatch(line); m != nil {
		offset, err := cdda.MSFToFrames(m[1])
		if err != nil {
			errs = append(errs, fmt.Errorf("INDEX offset: %w", err))
		} else {
			records = append(records, SubIndex{Offset: offset})
		}
	}

	return records, errs
}
