package toc

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"github.com/binaryphile/crostini-toc/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, s string) *File {
	t.Helper()
	f, err := Parse(strings.NewReader(s), "/discs/test.toc")
	require.NoError(t, err)
	return f
}

func assertIndex(t *testing.T, track *table.Track, n int, path string, relative, counter int) {
	t.Helper()
	idx := track.GetIndex(n)
	require.NotNil(t, idx, "track %d index %d", track.Number, n)
	assert.Equal(t, table.Index{Path: path, Relative: relative, Counter: counter}, *idx,
		"track %d index %d", track.Number, n)
}

func TestOpen_Breeders(t *testing.T) {
	f, err := Open("testdata/breeders.toc")
	require.NoError(t, err)

	it := f.Table
	assert.Empty(t, f.Messages)
	assert.Equal(t, "testdata/breeders.toc", f.Path)
	assert.Equal(t, "0602517642256", it.Catalog)
	assert.Equal(t, map[string]string{
		"TITLE":     "Pod",
		"PERFORMER": "The Breeders",
		"GENRE":     "Rock",
	}, it.CDText)

	require.Len(t, it.Tracks, 3)

	t1, t2, t3 := it.Tracks[0], it.Tracks[1], it.Tracks[2]

	// Track 1: one FILE of 9000 frames, no pre-gap
	assert.Equal(t, 1, t1.Number)
	assert.Equal(t, "AUDIO", t1.Mode)
	assert.Equal(t, "GBAFL9000033", t1.ISRC)
	assert.Equal(t, "Glorious", t1.CDText["TITLE"])
	assert.Equal(t, "GBAFL9000033", t1.CDText["ISRC"])
	assert.Equal(t, []int{1}, t1.IndexNumbers())
	assertIndex(t, t1, 1, "data.wav", 0, 1)

	// Track 2: starts at 9000 with a 150-frame pre-gap
	assert.Equal(t, "GBAFL9000034", t2.ISRC)
	assert.Equal(t, "Doe", t2.CDText["TITLE"])
	assert.Equal(t, []int{0, 1}, t2.IndexNumbers())
	assertIndex(t, t2, 0, "data.wav", 9000, 1)
	assertIndex(t, t2, 1, "data.wav", 9150, 1)

	// Track 3: starts at 9000 + 24075, sub-index offset is taken as written
	assert.Empty(t, t3.ISRC)
	assert.Equal(t, "Oh!", t3.CDText["TITLE"])
	assert.Equal(t, []int{1, 2}, t3.IndexNumbers())
	assertIndex(t, t3, 1, "data.wav", 33075, 1)
	assertIndex(t, t3, 2, "data.wav", 2250, 1)

	assert.Equal(t, 33075+13500, it.Leadout)
}

func TestOpen_HiddenTrackAndFileSwitch(t *testing.T) {
	f, err := Open("testdata/htoa.toc")
	require.NoError(t, err)
	require.Len(t, f.Table.Tracks, 3)

	t1, t2, t3 := f.Table.Tracks[0], f.Table.Tracks[1], f.Table.Tracks[2]

	// 750 frames of silence precede the first file; no file was active
	// so the silence does not bump the counter
	assertIndex(t, t1, 0, `AUDIO\01.wav`, 0, 1)
	assertIndex(t, t1, 1, `AUDIO\01.wav`, 750, 1)

	assertIndex(t, t2, 1, `AUDIO\02.wav`, 14250, 2)
	assertIndex(t, t3, 1, `AUDIO\02.wav`, 32250, 2)

	assert.Equal(t, 41250, f.Table.Leadout)
}

func TestOpen_HeaderSilence(t *testing.T) {
	f, err := Open("testdata/leadin.toc")
	require.NoError(t, err)
	assert.Empty(t, f.Messages)
	require.Len(t, f.Table.Tracks, 2)

	t1, t2 := f.Table.Tracks[0], f.Table.Tracks[1]

	// silence before the first TRACK shifts track 1 without a pre-gap index
	assert.Equal(t, []int{1}, t1.IndexNumbers())
	assertIndex(t, t1, 1, "01.wav", 750, 1)
	assertIndex(t, t2, 1, "01.wav", 750+13500, 1)

	assert.Equal(t, 13500, f.TrackLength(t1))
	assert.Equal(t, 750+13500+9000, f.Table.Leadout)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open("testdata/nonexistent.toc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "open toc")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestParse_ReadError(t *testing.T) {
	f, err := Parse(io.MultiReader(strings.NewReader("TRACK AUDIO\n"), failingReader{}), "x.toc")
	assert.Nil(t, f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.Contains(t, err.Error(), "read toc")
}

func TestParse_OversizedIndexOffset(t *testing.T) {
	f := parseString(t, "TRACK AUDIO\nFILE \"a.wav\" 0 100\nINDEX 99999999999999999:00:00\n")

	require.Len(t, f.Messages, 1)
	assert.Equal(t, 3, f.Messages[0].Line)
	assert.Contains(t, f.Messages[0].Text, "INDEX offset")
	assert.Equal(t, []int{1}, f.Table.Tracks[0].IndexNumbers())
}

func TestParse_LongLine(t *testing.T) {
	title := strings.Repeat("x", 2*1024*1024)
	f := parseString(t, "TRACK AUDIO\nTITLE \""+title+"\"\nFILE \"a.wav\" 0 100\n")

	assert.Empty(t, f.Messages)
	require.Len(t, f.Table.Tracks, 1)
	assert.Equal(t, title, f.Table.Tracks[0].CDText["TITLE"])
	assertIndex(t, f.Table.Tracks[0], 1, "a.wav", 0, 1)
	assert.Equal(t, 100, f.Table.Leadout)
}

func TestParse_NoTrailingNewline(t *testing.T) {
	f := parseString(t, "TRACK AUDIO\nFILE \"a.wav\" 0 100")

	require.Len(t, f.Table.Tracks, 1)
	assert.Equal(t, 100, f.Table.Leadout)
}

func TestParse_Empty(t *testing.T) {
	f := parseString(t, "")

	assert.Empty(t, f.Table.Tracks)
	assert.Empty(t, f.Table.Catalog)
	assert.Empty(t, f.Messages)
	assert.Zero(t, f.Table.Leadout)
}

func TestParse_StartWithoutTrack(t *testing.T) {
	f := parseString(t, "CD_DA\nSTART 00:02:00\n")

	assert.Equal(t, []Message{{Line: 2, Text: "START without preceding TRACK"}}, f.Messages)
	assert.Empty(t, f.Table.Tracks)
}

func TestParse_IndexWithoutTrack(t *testing.T) {
	f := parseString(t, "INDEX 00:01:00\n")

	assert.Equal(t, []Message{{Line: 1, Text: "INDEX without preceding TRACK"}}, f.Messages)
}

func TestParse_DiagnosticsDoNotAbort(t *testing.T) {
	f := parseString(t, strings.Join([]string{
		"CD_DA",
		"START 00:02:00",
		"INDEX 00:01:00",
		`ISRC "USABC0000001"`,
		"TRACK AUDIO",
		`FILE "a.wav" 0 100`,
		"SILENCE soon",
		"INDEX 00:00:50",
	}, "\n"))

	require.Len(t, f.Messages, 4)
	assert.Equal(t, Message{Line: 2, Text: "START without preceding TRACK"}, f.Messages[0])
	assert.Equal(t, Message{Line: 3, Text: "INDEX without preceding TRACK"}, f.Messages[1])
	assert.Equal(t, Message{Line: 4, Text: "ISRC without preceding TRACK"}, f.Messages[2])
	assert.Equal(t, 7, f.Messages[3].Line)
	assert.Contains(t, f.Messages[3].Text, "SILENCE length")

	// The header ISRC line still counts as disc CD-TEXT
	assert.Equal(t, "USABC0000001", f.Table.CDText["ISRC"])

	require.Len(t, f.Table.Tracks, 1)
	track := f.Table.Tracks[0]
	assertIndex(t, track, 1, "a.wav", 0, 1)
	assertIndex(t, track, 2, "a.wav", 50, 1)
	assert.Equal(t, 100, f.Table.Leadout)
}

func TestParse_SilenceAfterFileStartsNewSegment(t *testing.T) {
	f := parseString(t, strings.Join([]string{
		"TRACK AUDIO",
		`FILE "a.wav" 0 1000`,
		"TRACK AUDIO",
		"SILENCE 200",
		`FILE "a.wav" 1000 500`,
		"TRACK AUDIO",
		`FILE "a.wav" 1500 500`,
	}, "\n"))

	require.Len(t, f.Table.Tracks, 3)
	assertIndex(t, f.Table.Tracks[0], 1, "a.wav", 0, 1)
	// silence ended a.wav (counter 2), re-opening a.wav is a new segment (3)
	assertIndex(t, f.Table.Tracks[1], 1, "a.wav", 1000, 3)
	assertIndex(t, f.Table.Tracks[2], 1, "a.wav", 1700, 3)
}

func TestParse_FileStartDoesNotMoveOffset(t *testing.T) {
	f := parseString(t, strings.Join([]string{
		"TRACK AUDIO",
		`FILE "a.wav" 04:00:00 100`,
		"TRACK AUDIO",
		`FILE "a.wav" 08:00:00 100`,
	}, "\n"))

	assertIndex(t, f.Table.Tracks[0], 1, "a.wav", 0, 1)
	assertIndex(t, f.Table.Tracks[1], 1, "a.wav", 100, 1)
}

func TestParse_TrackWithoutFile(t *testing.T) {
	f := parseString(t, "TRACK AUDIO\nSTART 00:00:10\n")

	require.Len(t, f.Table.Tracks, 1)
	assertIndex(t, f.Table.Tracks[0], 0, "", 0, 0)
	assertIndex(t, f.Table.Tracks[0], 1, "", 10, 0)
}

func TestParse_ISRCFirstWins(t *testing.T) {
	f := parseString(t, strings.Join([]string{
		"TRACK AUDIO",
		`ISRC "AAAAA0000001"`,
		`ISRC "BBBBB0000002"`,
	}, "\n"))

	track := f.Table.Tracks[0]
	assert.Equal(t, "AAAAA0000001", track.ISRC)
	assert.Equal(t, "AAAAA0000001", track.CDText["ISRC"])
}

func TestParse_UnknownCDTextKeyIgnored(t *testing.T) {
	f := parseString(t, strings.Join([]string{
		`SIZE_INFO "x"`,
		`TITLE "Disc"`,
		"TRACK AUDIO",
		`  TOC_INFO1 "y"`,
		`  TITLE "Song"`,
	}, "\n"))

	assert.Equal(t, map[string]string{"TITLE": "Disc"}, f.Table.CDText)
	assert.Equal(t, map[string]string{"TITLE": "Song"}, f.Table.Tracks[0].CDText)
}

func TestParse_CatalogHeaderOnly(t *testing.T) {
	f := parseString(t, strings.Join([]string{
		`CATALOG "1111111111111"`,
		`CATALOG "2222222222222"`,
		"TRACK AUDIO",
		`CATALOG "3333333333333"`,
	}, "\n"))

	assert.Equal(t, "1111111111111", f.Table.Catalog)
}

func TestParse_TrackNumbersAreSequential(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, "TRACK AUDIO", `FILE "a.wav" 0 00:10:00`, "START 00:00:05")
	}
	f := parseString(t, strings.Join(lines, "\n"))

	require.Len(t, f.Table.Tracks, 12)
	for i, track := range f.Table.Tracks {
		assert.Equal(t, i+1, track.Number)

		one := track.GetIndex(1)
		require.NotNil(t, one)
		if zero := track.GetIndex(0); zero != nil {
			assert.GreaterOrEqual(t, one.Relative, zero.Relative)
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	a, err := Open("testdata/breeders.toc")
	require.NoError(t, err)
	b, err := Open("testdata/breeders.toc")
	require.NoError(t, err)

	assert.Equal(t, a.Table, b.Table)
	assert.Equal(t, a.Messages, b.Messages)
}

func TestParse_DataTrackMode(t *testing.T) {
	f := parseString(t, "TRACK AUDIO\nTRACK MODE2_FORM_MIX\n")

	require.Len(t, f.Table.Tracks, 2)
	assert.True(t, f.Table.Tracks[0].IsAudio())
	assert.False(t, f.Table.Tracks[1].IsAudio())
	assert.Equal(t, "MODE2_FORM_MIX", f.Table.Tracks[1].Mode)
}

func TestParse_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Open("testdata/breeders.toc", WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "found catalog number")
	assert.Contains(t, out, "switched to new FILE")
	assert.Contains(t, out, "added index")
}

func TestMessage_String(t *testing.T) {
	m := Message{Line: 7, Text: "INDEX without preceding TRACK"}
	assert.Equal(t, "line 7: INDEX without preceding TRACK", m.String())
}
