package cdda

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CD timing constants
const (
	FramesPerSecond = 75  // CD audio frames per second
	LeadIn          = 150 // Frames before LBA 0 (two second lead-in)
)

// ErrInvalidMSF is returned for duration notation that is neither
// MM:SS:FF nor a bare frame count.
var ErrInvalidMSF = errors.New("invalid MSF duration")

// MSFToFrames converts a duration to frames.
// This is a pure function: "MM:SS:FF" or "NNN" → frames.
//
// MM:SS:FF is ((MM*60)+SS)*75+FF. A bare integer is a frame count.
// Each field must fit in 32 bits.
func MSFToFrames(s string) (int, error) {
	s = strings.TrimSpace(s)

	parts := strings.Split(s, ":")
	if len(parts) != 1 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMSF, s)
	}

	nums := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMSF, s)
		}
		nums[i] = n
	}

	frames := nums[0]
	if len(nums) == 3 {
		frames = (nums[0]*60+nums[1])*FramesPerSecond + nums[2]
	}
	if frames > math.MaxInt {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMSF, s)
	}

	return int(frames), nil
}

// FramesToMSF formats a frame count as MM:SS:FF.
// Minutes are not wrapped, so 100 minutes prints as "100:00:00".
func FramesToMSF(frames int) string {
	sign := ""
	if frames < 0 {
		sign = "-"
		frames = -frames
	}

	ff := frames % FramesPerSecond
	secs := frames / FramesPerSecond

	return fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/60, secs%60, ff)
}
