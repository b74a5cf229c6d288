package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/binaryphile/crostini-toc/internal/cdda"
	"github.com/binaryphile/crostini-toc/internal/cdtext"
	"github.com/binaryphile/crostini-toc/internal/musicbrainz"
	"github.com/binaryphile/crostini-toc/internal/table"
	"github.com/binaryphile/crostini-toc/internal/toc"
)

const (
	appName    = "toc-index"
	appVersion = "1.0"
	appURL     = "https://github.com/binaryphile/crostini-toc"
)

type options struct {
	json    bool
	discID  bool
	resolve bool
	lookup  bool
	ascii   bool
	verbose bool
}

func main() {
	var opts options

	flag.BoolVar(&opts.json, "json", false, "Print the index table as JSON")
	flag.BoolVar(&opts.discID, "discid", false, "Print MusicBrainz and CDDB disc IDs")
	flag.BoolVar(&opts.resolve, "resolve", false, "Resolve FILE references to files on disk")
	flag.BoolVar(&opts.lookup, "lookup", false, "Look up releases on MusicBrainz by disc ID")
	flag.BoolVar(&opts.ascii, "ascii", false, "Fold CD-TEXT to ASCII")

	flag.BoolVar(&opts.verbose, "v", false, "Verbose output (list every index)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Verbose output (list every index)")

	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")

	timeout := flag.Duration("timeout", 30*time.Second, "MusicBrainz lookup timeout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.toc>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Read a .toc transcript and print its track/index layout.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	logger := newLogger(*logLevel, *logFormat, os.Stderr)

	path := flag.Arg(0)
	f, err := toc.Open(path, toc.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("parsed toc", "path", path, "tracks", len(f.Table.Tracks), "messages", len(f.Messages))

	var found *lookupResult
	if opts.lookup {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		found, err = lookup(ctx, f.Table)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "MusicBrainz lookup failed: %v\n", err)
			os.Exit(1)
		}
	}

	if opts.json {
		data, err := toJSON(f, opts, found)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println("toc-index - .toc track/index reader")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("File: %s\n", f.Path)

	printHeader(os.Stdout, f.Table, opts)
	printTracks(os.Stdout, f, opts)
	printMessages(os.Stdout, f.Messages)

	if opts.discID {
		printDiscIDs(os.Stdout, f.Table)
	}

	if opts.resolve {
		printSources(os.Stdout, f)
	}

	if found != nil {
		printLookup(os.Stdout, found, f.Table, opts)
	}
}

// newLogger creates a slog.Logger for the given level and format.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}

func text(s string, opts options) string {
	if opts.ascii {
		return cdtext.ASCII(s)
	}
	return cdtext.Decode(s)
}

func printHeader(w io.Writer, it *table.IndexTable, opts options) {
	if it.Catalog != "" {
		fmt.Fprintf(w, "Catalog: %s\n", it.Catalog)
	}
	for _, key := range sortedKeys(it.CDText) {
		fmt.Fprintf(w, "%s: %s\n", key, text(it.CDText[key], opts))
	}
}

func printTracks(w io.Writer, f *toc.File, opts options) {
	fmt.Fprintf(w, "\nTracks:\n")
	fmt.Fprintf(w, "%6s %-8s %-12s %10s %10s  %s\n", "Track", "Mode", "ISRC", "Start", "Length", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, track := range f.Table.Tracks {
		start := "?"
		if idx := track.GetIndex(1); idx != nil {
			start = cdda.FramesToMSF(idx.Relative)
		}

		length := "?"
		if frames := f.TrackLength(track); frames != toc.UnknownLength {
			length = cdda.FramesToMSF(frames)
		} else if span := f.Table.Span(track); span > 0 {
			length = "~" + cdda.FramesToMSF(span)
		}

		fmt.Fprintf(w, "%6d %-8s %-12s %10s %10s  %s\n",
			track.Number, track.Mode, track.ISRC, start, length, text(track.CDText["TITLE"], opts))

		if !opts.verbose {
			continue
		}

		for _, n := range track.IndexNumbers() {
			idx := track.GetIndex(n)
			fmt.Fprintf(w, "%6s index %02d %10s  counter %d  %s\n",
				"", n, cdda.FramesToMSF(idx.Relative), idx.Counter, idx.Path)
		}
		for _, key := range sortedKeys(track.CDText) {
			fmt.Fprintf(w, "%6s %s: %s\n", "", key, text(track.CDText[key], opts))
		}
	}

	if it := f.Table; len(it.Tracks) > 0 {
		fmt.Fprintf(w, "%6s %-8s %-12s %10s\n", "Lead-out", "-", "", cdda.FramesToMSF(it.Leadout))
	}
}

func printMessages(w io.Writer, messages []toc.Message) {
	if len(messages) == 0 {
		return
	}
	fmt.Fprintf(w, "\nDiagnostics:\n")
	for _, m := range messages {
		fmt.Fprintf(w, "  %s\n", m)
	}
}

func printDiscIDs(w io.Writer, it *table.IndexTable) {
	t := it.TOC()
	fmt.Fprintf(w, "\nMusicBrainz disc ID: %s\n", cdda.CalculateDiscID(t))
	fmt.Fprintf(w, "CDDB disc ID: %s\n", cdda.CalculateCDDBDiscID(t))
	fmt.Fprintf(w, "Audio tracks: %d of %d\n", t.AudioTracks(), len(t.Tracks))
}

// source is a FILE reference and what it resolved to.
type source struct {
	Declared string `json:"declared"`
	Path     string `json:"path,omitempty"`
	Frames   int    `json:"frames,omitempty"`
	Error    string `json:"error,omitempty"`
}

func resolveSources(f *toc.File) []source {
	var sources []source
	var seen []string

	for _, track := range f.Table.Tracks {
		for _, n := range track.IndexNumbers() {
			declared := track.GetIndex(n).Path
			if declared == "" || slices.Contains(seen, declared) {
				continue
			}
			seen = append(seen, declared)

			s := source{Declared: declared}
			path, err := f.RealPath(declared)
			if err != nil {
				s.Error = err.Error()
				sources = append(sources, s)
				continue
			}
			s.Path = path

			if frames, err := payloadFrames(path); err == nil {
				s.Frames = frames
			}
			sources = append(sources, s)
		}
	}

	return sources
}

// payloadFrames reads the audio length of a resolved source from its
// header.
func payloadFrames(path string) (int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return cdda.WAVFileFrames(path)
	case ".flac":
		return cdda.FLACFileFrames(path)
	default:
		return 0, fmt.Errorf("no length reader for %s", path)
	}
}

func printSources(w io.Writer, f *toc.File) {
	fmt.Fprintf(w, "\nSources:\n")
	for _, s := range resolveSources(f) {
		switch {
		case s.Error != "":
			fmt.Fprintf(w, "  %s: %s\n", s.Declared, s.Error)
		case s.Frames > 0:
			fmt.Fprintf(w, "  %s -> %s (%s)\n", s.Declared, s.Path, cdda.FramesToMSF(s.Frames))
		default:
			fmt.Fprintf(w, "  %s -> %s\n", s.Declared, s.Path)
		}
	}
}

// lookupResult is what MusicBrainz knows about the disc.
type lookupResult struct {
	DiscID   string                `json:"discid"`
	Releases []musicbrainz.Release `json:"releases"`
	Best     *musicbrainz.Release  `json:"best,omitempty"` // with tracks
}

func lookup(ctx context.Context, it *table.IndexTable) (*lookupResult, error) {
	if len(it.Tracks) == 0 {
		return nil, errors.New("no tracks to look up")
	}

	result := &lookupResult{DiscID: cdda.CalculateDiscID(it.TOC())}

	client := musicbrainz.NewClient(appName, appVersion, appURL)
	defer client.Close()

	releases, err := client.LookupByDiscID(ctx, result.DiscID)
	if err != nil {
		return nil, err
	}
	result.Releases = musicbrainz.SortReleasesByTrackMatch(releases, len(it.Tracks))

	if len(result.Releases) == 0 {
		return result, nil
	}

	best, err := client.GetReleaseTracks(ctx, result.Releases[0].MBID)
	if err != nil {
		return nil, err
	}
	result.Best = best

	return result, nil
}

func printLookup(w io.Writer, found *lookupResult, it *table.IndexTable, opts options) {
	fmt.Fprintf(w, "\nMusicBrainz releases for %s:\n", found.DiscID)
	if len(found.Releases) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}

	for i, r := range found.Releases {
		fmt.Fprintf(w, "  %d. %s - %s (%d, %s, %d tracks) %s\n",
			i+1, r.Artist, r.Title, r.Year, r.Country, r.TrackCount, r.MBID)
	}

	if found.Best == nil {
		return
	}

	fmt.Fprintf(w, "\nTracks of %s - %s:\n", found.Best.Artist, found.Best.Title)
	for i, mt := range found.Best.Tracks {
		parsed := ""
		if i < len(it.Tracks) {
			parsed = text(it.Tracks[i].CDText["TITLE"], opts)
		}
		fmt.Fprintf(w, "  %2d. %-40s %s\n", mt.Num, mt.Artist+" - "+mt.Title, parsed)
	}
}

func toJSON(f *toc.File, opts options, found *lookupResult) ([]byte, error) {
	type jsonTrack struct {
		*table.Track
		CDText map[string]string `json:"cdtext,omitempty"` // decoded
		Length *int              `json:"length"`
		Span   int               `json:"span"`
	}

	type jsonTOC struct {
		Path        string            `json:"path"`
		Catalog     string            `json:"catalog,omitempty"`
		CDText      map[string]string `json:"cdtext,omitempty"`
		Tracks      []jsonTrack       `json:"tracks"`
		Leadout     int               `json:"leadout"`
		Messages    []toc.Message     `json:"messages"`
		DiscID      string            `json:"discid,omitempty"`
		CDDBDiscID  string            `json:"cddbDiscid,omitempty"`
		Sources     []source          `json:"sources,omitempty"`
		MusicBrainz *lookupResult     `json:"musicbrainz,omitempty"`
	}

	tracks := make([]jsonTrack, len(f.Table.Tracks))
	for i, track := range f.Table.Tracks {
		tracks[i] = jsonTrack{
			Track:  track,
			CDText: decodeAll(track.CDText, opts),
			Span:   f.Table.Span(track),
		}
		if frames := f.TrackLength(track); frames != toc.UnknownLength {
			tracks[i].Length = &frames
		}
	}

	j := jsonTOC{
		Path:        f.Path,
		Catalog:     f.Table.Catalog,
		CDText:      decodeAll(f.Table.CDText, opts),
		Tracks:      tracks,
		Leadout:     f.Table.Leadout,
		Messages:    f.Messages,
		MusicBrainz: found,
	}
	if j.Messages == nil {
		j.Messages = []toc.Message{}
	}

	if opts.discID {
		t := f.Table.TOC()
		j.DiscID = cdda.CalculateDiscID(t)
		j.CDDBDiscID = cdda.CalculateCDDBDiscID(t)
	}
	if opts.resolve {
		j.Sources = resolveSources(f)
	}

	return json.MarshalIndent(j, "", "  ")
}

func decodeAll(m map[string]string, opts options) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = text(v, opts)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
