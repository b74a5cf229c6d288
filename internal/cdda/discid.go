package cdda

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"
)

// CalculateDiscID computes the MusicBrainz disc ID from a TOC.
// Track and lead-out LBAs must already include the 150-frame lead-in.
// This is a pure function: TOC struct → 28-char disc ID string.
//
// Algorithm:
// 1. Format track data as hex ASCII string
// 2. SHA-1 hash the string
// 3. Base64 encode with MusicBrainz URL-safe substitutions
func CalculateDiscID(toc TOC) string {
	// Build the hex string that gets hashed
	// Format: "%02X%02X" + "%08X" * 100
	// - First track number (1 byte as 2 hex chars)
	// - Last track number (1 byte as 2 hex chars)
	// - 100 offsets as 8 hex chars each:
	//   - Index 0: leadout offset
	//   - Index 1-99: track offsets (0 for unused)

	var sb strings.Builder

	// First track and last track
	sb.WriteString(fmt.Sprintf("%02X", toc.FirstTrack))
	sb.WriteString(fmt.Sprintf("%02X", toc.LastTrack))

	// Build offset array: index 0 = leadout, index 1-99 = tracks
	offsets := make([]int, 100)
	offsets[0] = toc.LeadoutLBA

	for _, track := range toc.Tracks {
		if track.Num >= 1 && track.Num <= 99 {
			offsets[track.Num] = track.LBA
		}
	}

	// Write all 100 offsets
	for i := 0; i < 100; i++ {
		sb.WriteString(fmt.Sprintf("%08X", offsets[i]))
	}

	// SHA-1 hash
	hash := sha1.Sum([]byte(sb.String()))

	// Base64 encode with MusicBrainz substitutions
	encoded := base64.StdEncoding.EncodeToString(hash[:])

	// MusicBrainz uses URL-safe characters:
	// + → .
	// / → _
	// = → -
	encoded = strings.ReplaceAll(encoded, "+", ".")
	encoded = strings.ReplaceAll(encoded, "/", "_")
	encoded = strings.ReplaceAll(encoded, "=", "-")

	return encoded
}

// CalculateCDDBDiscID computes the FreeDB/CDDB disc ID from a TOC.
// This is a pure function: TOC struct → 8 lowercase hex digits.
//
// Layout of the 32-bit ID:
//   - bits 24-31: sum of the decimal digits of every track's start second, mod 255
//   - bits 8-23: playing time in seconds, first track to lead-out
//   - bits 0-7: number of tracks
func CalculateCDDBDiscID(toc TOC) string {
	n := 0
	for _, track := range toc.Tracks {
		n += digitSum(track.LBA / FramesPerSecond)
	}

	var first int
	if len(toc.Tracks) > 0 {
		first = toc.Tracks[0].LBA / FramesPerSecond
	}
	playing := toc.LeadoutLBA/FramesPerSecond - first

	id := uint32(n%0xff)<<24 | uint32(playing)<<8 | uint32(len(toc.Tracks))
	return fmt.Sprintf("%08x", id)
}

func digitSum(n int) int {
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}
