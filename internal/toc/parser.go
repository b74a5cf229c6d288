// Package toc reads cdrdao-style .toc transcripts into a table.IndexTable.
//
// Parsing is a single forward scan. Each line is classified into records
// (see Classify) which are applied in order to an explicit parse state.
// A track's index 1 depends on the pre-gap declared after its TRACK line,
// so it is written when the next TRACK line arrives or at end of input.
package toc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/binaryphile/crostini-toc/internal/table"
)

// Message is a diagnostic about one line of the transcript.
type Message struct {
	Line int    `json:"line"` // 1-based
	Text string `json:"text"`
}

func (m Message) String() string {
	return fmt.Sprintf("line %d: %s", m.Line, m.Text)
}

// File is a parsed .toc transcript.
type File struct {
	Path     string
	Table    *table.IndexTable
	Messages []Message

	logger *slog.Logger
}

// Option configures parsing.
type Option func(*File)

// WithLogger sets the logger that receives parse tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) {
		f.logger = logger
	}
}

// Open reads and parses the transcript at path.
// The only error is failure to open or read it; malformed lines become
// Messages.
func Open(path string, opts ...Option) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open toc: %w", err)
	}
	defer r.Close()

	return Parse(r, path, opts...)
}

// Parse reads a transcript from r. path is the transcript's location,
// used later to resolve FILE references relative to it.
func Parse(r io.Reader, path string, opts ...Option) (*File, error) {
	f := &File{
		Path:   path,
		Table:  table.New(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := f.parse(r); err != nil {
		return nil, err
	}

	return f, nil
}

type section int

const (
	sectionHeader section = iota
	sectionTrack
)

// sourceFile is the most recent FILE record.
type sourceFile struct {
	path   string
	start  int
	length int
}

// state is threaded through the scan, one line at a time.
type state struct {
	section section
	file    *sourceFile
	track   *table.Track

	counter     int // source segment, bumped on every file switch or silence after a file
	trackNumber int
	indexNumber int // last sub-index number used in the current track

	offset int // absolute start of the current track's material
	length int // frames accrued by the current track's FILE/SILENCE records
	pregap int // from START, applied to the current track's index 1
}

func (s *state) filePath() string {
	if s.file == nil {
		return ""
	}
	return s.file.path
}

func (f *File) parse(r io.Reader) error {
	br := bufio.NewReader(r)

	st := &state{}
	number := 0

	// Lines have no length limit; a huge CD-TEXT value is still a line.
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			number++
			f.scanLine(st, number, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read toc: %w", err)
		}
	}

	if st.track != nil {
		f.finishTrack(st)
		f.Table.Leadout = st.offset + st.length
	}

	return nil
}

func (f *File) scanLine(st *state, number int, line string) {
	line = strings.TrimRightFunc(line, unicode.IsSpace)

	records, errs := Classify(line)
	for _, err := range errs {
		f.message(number, err.Error())
	}
	for _, rec := range records {
		f.apply(st, number, rec)
	}
}

func (f *File) apply(st *state, number int, rec Record) {
	switch rec := rec.(type) {
	case CDText:
		if !table.IsCDTextField(rec.Key) {
			return
		}
		switch st.section {
		case sectionHeader:
			f.Table.CDText[rec.Key] = rec.Value
			f.logger.Debug("found disc CD-Text", "key", rec.Key, "value", rec.Value)
		case sectionTrack:
			// An ISRC already on the track is kept
			if rec.Key == "ISRC" && st.track.ISRC != "" {
				return
			}
			st.track.CDText[rec.Key] = rec.Value
			f.logger.Debug("found track CD-Text", "track", st.track.Number, "key", rec.Key, "value", rec.Value)
		}

	case Catalog:
		if st.section != sectionHeader || f.Table.Catalog != "" {
			return
		}
		f.Table.Catalog = rec.Number
		f.logger.Debug("found catalog number", "catalog", rec.Number)

	case TrackHeader:
		st.section = sectionTrack

		if st.track != nil {
			f.finishTrack(st)
		}

		st.trackNumber++
		st.offset += st.length
		st.length = 0
		st.indexNumber = 1
		st.pregap = 0

		st.track = table.NewTrack(st.trackNumber)
		st.track.Mode = rec.Mode
		f.Table.Tracks = append(f.Table.Tracks, st.track)

	case ISRC:
		if st.track == nil {
			f.message(number, "ISRC without preceding TRACK")
			return
		}
		if st.track.ISRC == "" {
			st.track.ISRC = rec.Code
			f.logger.Debug("found ISRC code", "track", st.track.Number, "isrc", rec.Code)
		}

	case Silence:
		if st.file != nil {
			st.counter++
			st.file = nil
			f.logger.Debug("SILENCE after FILE, increased counter", "counter", st.counter)
		}
		st.length += rec.Length

	case FileRef:
		if st.file == nil || st.file.path != rec.Name {
			st.counter++
			f.logger.Debug("switched to new FILE, increased counter",
				"track", st.trackNumber, "file", rec.Name, "counter", st.counter)
		}
		st.file = &sourceFile{path: rec.Name, start: rec.Start, length: rec.Length}
		// start is file-relative and never moves the disc offset
		st.length += rec.Length

	case PregapStart:
		if st.track == nil {
			f.message(number, "START without preceding TRACK")
			return
		}
		idx := st.track.SetIndex(0, st.filePath(), st.offset, st.counter)
		st.pregap = rec.Length
		f.logger.Debug("added index", "track", st.track.Number, "index", 0,
			"relative", idx.Relative, "counter", idx.Counter)

	case SubIndex:
		if st.track == nil {
			f.message(number, "INDEX without preceding TRACK")
			return
		}
		st.indexNumber++
		idx := st.track.SetIndex(st.indexNumber, st.filePath(), rec.Offset, st.counter)
		f.logger.Debug("added index", "track", st.track.Number, "index", st.indexNumber,
			"relative", idx.Relative, "counter", idx.Counter)
	}
}

// finishTrack writes index 1 of the current track, now that its
// pre-gap is known.
func (f *File) finishTrack(st *state) {
	idx := st.track.SetIndex(1, st.filePath(), st.offset+st.pregap, st.counter)
	f.logger.Debug("added index", "track", st.track.Number, "index", 1,
		"relative", idx.Relative, "counter", idx.Counter)
}

func (f *File) message(number int, text string) {
	f.Messages = append(f.Messages, Message{Line: number, Text: text})
	f.logger.Debug("diagnostic", "line", number, "message", text)
}
