package cdda

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// ErrNotFLAC is returned when a stream has no readable FLAC STREAMINFO.
var ErrNotFLAC = errors.New("not a FLAC stream")

// FLACFrames reads the STREAMINFO block of a FLAC stream and returns the
// number of whole CD frames it holds. Audio frames are not decoded.
// A stream that does not record its sample count yields 0.
func FLACFrames(r io.Reader) (int, error) {
	stream, err := flac.New(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotFLAC, err)
	}
	defer stream.Close()

	return streamFrames(stream)
}

// FLACFileFrames parses the metadata of the FLAC file at path and returns
// its length in CD frames.
// This is boundary code - performs file I/O.
func FLACFileFrames(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("open flac: %w", err)
	}
	defer stream.Close()

	return streamFrames(stream)
}

func streamFrames(stream *flac.Stream) (int, error) {
	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return 0, ErrNotFLAC
	}

	// 588 samples per frame at 44.1 kHz
	return int(info.NSamples * FramesPerSecond / uint64(info.SampleRate)), nil
}
