// Package musicbrainz looks up releases for a parsed disc.
package musicbrainz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uploadedlobster.com/mbtypes"
	"go.uploadedlobster.com/musicbrainzws2"
)

// RequestInterval is the minimum spacing between requests, per the
// MusicBrainz rate limit.
const RequestInterval = 1 * time.Second

// Release contains metadata for an album/release
type Release struct {
	MBID        string  `json:"mbid"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"` // may be "Various Artists" for compilations
	Year        int     `json:"year,omitempty"`
	Country     string  `json:"country,omitempty"`
	TrackCount  int     `json:"trackCount"`
	DiscCount   int     `json:"discCount"`
	Tracks      []Track `json:"tracks,omitempty"`
	Compilation bool    `json:"compilation,omitempty"`
}

// Track contains metadata for a single track
type Track struct {
	Num    int    `json:"num"`
	Title  string `json:"title"`
	Artist string `json:"artist"` // may differ from album artist on compilations
}

// Client wraps the MusicBrainz API
type Client struct {
	client *musicbrainzws2.Client
	last   time.Time
}

// NewClient creates a new MusicBrainz API client
func NewClient(appName, version, contact string) *Client {
	client := musicbrainzws2.NewClient(musicbrainzws2.AppInfo{
		Name:    appName,
		Version: version,
		URL:     contact,
	})
	return &Client{client: client}
}

// Close releases client resources
func (c *Client) Close() error {
	return c.client.Close()
}

// wait blocks until RequestInterval has passed since the last request.
func (c *Client) wait(ctx context.Context) error {
	if d := RequestInterval - time.Since(c.last); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.last = time.Now()
	return nil
}

// LookupByDiscID looks up releases by MusicBrainz disc ID.
// Returns a list of matching releases (may be multiple pressings/editions).
func (c *Client) LookupByDiscID(ctx context.Context, discID string) ([]Release, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	filter := musicbrainzws2.DiscIDFilter{
		Includes: []string{"recordings", "artists", "release-groups"},
	}

	disc, err := c.client.LookupDiscID(ctx, discID, filter)
	if err != nil {
		return nil, fmt.Errorf("disc lookup: %w", err)
	}

	releases := make([]Release, 0, len(disc.Releases))
	for _, r := range disc.Releases {
		releases = append(releases, Release{
			MBID:        string(r.ID),
			Title:       r.Title,
			Artist:      getArtistName(r.ArtistCredit),
			Year:        r.Date.Year,
			Country:     string(r.CountryCode),
			TrackCount:  getTotalTracks(r.Media),
			DiscCount:   len(r.Media),
			Compilation: isCompilation(r.ArtistCredit),
		})
	}

	return releases, nil
}

// GetReleaseTracks fetches full track information for a release.
// Call this after selecting a release from LookupByDiscID.
func (c *Client) GetReleaseTracks(ctx context.Context, mbid string) (*Release, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	filter := musicbrainzws2.IncludesFilter{
		Includes: []string{"recordings", "artists", "artist-credits"},
	}

	r, err := c.client.LookupRelease(ctx, mbtypes.MBID(mbid), filter)
	if err != nil {
		return nil, fmt.Errorf("release lookup: %w", err)
	}

	release := Release{
		MBID:        string(r.ID),
		Title:       r.Title,
		Artist:      getArtistName(r.ArtistCredit),
		Year:        r.Date.Year,
		Country:     string(r.CountryCode),
		TrackCount:  getTotalTracks(r.Media),
		DiscCount:   len(r.Media),
		Compilation: isCompilation(r.ArtistCredit),
	}

	for _, medium := range r.Media {
		for _, track := range medium.Tracks {
			release.Tracks = append(release.Tracks, Track{
				Num:    track.Position,
				Title:  track.Title,
				Artist: getTrackArtist(track, r.ArtistCredit),
			})
		}
	}

	return &release, nil
}

// SortReleasesByTrackMatch orders releases so that those with exactly
// trackCount tracks come first, newest first within each group.
// The input is not modified.
func SortReleasesByTrackMatch(releases []Release, trackCount int) []Release {
	sorted := make([]Release, len(releases))
	copy(sorted, releases)

	sort.SliceStable(sorted, func(i, j int) bool {
		mi := sorted[i].TrackCount == trackCount
		mj := sorted[j].TrackCount == trackCount
		if mi != mj {
			return mi
		}
		return sorted[i].Year > sorted[j].Year
	})

	return sorted
}

func getArtistName(credit musicbrainzws2.ArtistCredit) string {
	if len(credit) == 0 {
		return "Unknown Artist"
	}
	return credit.String()
}

func getTrackArtist(track musicbrainzws2.Track, albumCredit musicbrainzws2.ArtistCredit) string {
	if len(track.ArtistCredit) > 0 {
		return track.ArtistCredit.String()
	}
	if len(track.Recording.ArtistCredit) > 0 {
		return track.Recording.ArtistCredit.String()
	}
	return getArtistName(albumCredit)
}

func isCompilation(credit musicbrainzws2.ArtistCredit) bool {
	if len(credit) == 0 {
		return false
	}
	return getArtistName(credit) == "Various Artists"
}

func getTotalTracks(media []musicbrainzws2.Medium) int {
	total := 0
	for _, m := range media {
		total += m.TrackCount
	}
	return total
}
