package toc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/binaryphile/crostini-toc/internal/table"
)

// UnknownLength is returned by TrackLength when the length cannot be
// derived from the table. Callers should measure the audio instead.
const UnknownLength = -1

// Extensions are tried in order when a FILE reference does not exist as
// written.
var Extensions = []string{"wav", "flac"}

// NotFoundError is returned when no candidate for a FILE reference exists.
type NotFoundError struct {
	Path string // as declared in the transcript
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot find file for %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// TrackLength returns the length in frames of track, a member of it.
// This is a pure function: (table, track) → frames or UnknownLength.
//
// The length is the distance from this track's index 1 to the next
// track's index 1, which is only meaningful when both lie in the same
// source segment. The last track, a track not in the table, and tracks
// whose next neighbour is in another segment all yield UnknownLength.
func TrackLength(it *table.IndexTable, track *table.Track) int {
	i := it.Position(track)
	if i < 0 || i == len(it.Tracks)-1 {
		return UnknownLength
	}

	this := track.GetIndex(1)
	next := it.Tracks[i+1].GetIndex(1)
	if this == nil || next == nil {
		return UnknownLength
	}

	if this.Counter != next.Counter {
		return UnknownLength
	}

	return next.Relative - this.Relative
}

// TrackLength returns TrackLength for a track of this file's table.
func (f *File) TrackLength(track *table.Track) int {
	return TrackLength(f.Table, track)
}

// RealPath translates a declared FILE path to an existing file.
// This is boundary code - it checks the filesystem.
//
// The declared path is tried as written first. Otherwise backslashes are
// taken as separators and candidates are built: the path itself if it is
// absolute, else the path and then its base name relative to the
// directory of tocPath. Each candidate is tried with every extension in
// Extensions, replacing its own.
func RealPath(declared, tocPath string) (string, error) {
	if isFile(declared) {
		return declared, nil
	}

	tpath := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(declared, `\`, "/")))

	var candidates []string
	if filepath.IsAbs(tpath) {
		candidates = append(candidates, tpath)
	} else {
		dir := filepath.Dir(tocPath)
		candidates = append(candidates,
			filepath.Join(dir, tpath),
			filepath.Join(dir, filepath.Base(tpath)))
	}

	for _, candidate := range candidates {
		noext := strings.TrimSuffix(candidate, filepath.Ext(candidate))
		for _, ext := range Extensions {
			cpath := noext + "." + ext
			if isFile(cpath) {
				return cpath, nil
			}
		}
	}

	return "", &NotFoundError{Path: declared}
}

// RealPath resolves declared relative to this transcript.
func (f *File) RealPath(declared string) (string, error) {
	return RealPath(declared, f.Path)
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
