package cdda

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// WAV header errors
var (
	ErrNotWAV      = errors.New("not a RIFF/WAVE file")
	ErrNoDataChunk = errors.New("no data chunk in WAV file")
)

// CD audio constants
const (
	SampleRate    = 44100 // Hz
	Channels      = 2     // Stereo
	BitsPerSample = 16
	BytesPerFrame = 2352 // Raw CD-DA frame size
)

// WriteWAV creates a WAV file from raw CD audio samples.
// This is a pure function: raw audio bytes → complete WAV file bytes.
//
// Input: raw 16-bit stereo PCM samples at 44.1kHz (CD-DA format)
// Output: complete WAV file including header
func WriteWAV(samples []byte) []byte {
	if samples == nil {
		samples = []byte{}
	}

	dataSize := uint32(len(samples))
	fileSize := 36 + dataSize // Total - 8 bytes for RIFF header

	// WAV header is 44 bytes
	header := make([]byte, 44)

	// RIFF header
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], fileSize)
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // Subchunk1Size (16 for PCM)
	binary.LittleEndian.PutUint16(header[20:22], 1)  // AudioFormat (1 = PCM)
	binary.LittleEndian.PutUint16(header[22:24], Channels)
	binary.LittleEndian.PutUint32(header[24:28], SampleRate)

	byteRate := SampleRate * Channels * (BitsPerSample / 8) // 176400
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))

	blockAlign := Channels * (BitsPerSample / 8) // 4
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], BitsPerSample)

	// data subchunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	// Combine header and data
	wav := make([]byte, 44+len(samples))
	copy(wav[0:44], header)
	copy(wav[44:], samples)

	return wav
}

// ReadWAVFrames reads a RIFF/WAVE header and returns the number of whole
// CD frames in its data chunk. Chunks before "data" are skipped.
// Only the header is consumed; the sample data is not read.
func ReadWAVFrames(r io.Reader) (int, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, ErrNotWAV
	}

	var chunk [8]byte
	for {
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, ErrNoDataChunk
			}
			return 0, fmt.Errorf("read chunk: %w", err)
		}

		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		if string(chunk[0:4]) == "data" {
			return int(size / BytesPerFrame), nil
		}

		// Chunks are word aligned
		if size%2 == 1 {
			size++
		}
		if _, err := io.CopyN(io.Discard, r, size); err != nil {
			return 0, ErrNoDataChunk
		}
	}
}

// WAVFileFrames opens path and returns ReadWAVFrames of its header.
// This is boundary code - performs file I/O.
func WAVFileFrames(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	return ReadWAVFrames(f)
}
