package tags

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

var errNotVorbis = errors.New("not an Ogg Vorbis stream")

// ReadFile reads the comments of the stream at path.
func ReadFile(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read reads the comments of the stream in rs from its start.
func Read(rs io.ReadSeeker) (*Tag, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	m, err := tag.ReadFrom(rs)
	if err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	if m.FileType() != tag.OGG {
		return nil, errNotVorbis
	}

	track, totalTracks := m.Track()
	disc, totalDiscs := m.Disc()

	albumArtist := m.AlbumArtist()
	if albumArtist == "" {
		albumArtist = m.Artist()
	}

	t := &Tag{
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: albumArtist,
		Album:       m.Album(),
		Genre:       m.Genre(),
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
		Raw:         make(map[string]string),
	}
	for k, v := range m.Raw() {
		if s, ok := v.(string); ok {
			t.Raw[strings.ToLower(k)] = s
		}
	}
	t.Date = t.Raw["date"]
	if t.Date == "" {
		t.Date = yearToDate(m.Year())
	}
	return t, nil
}

// yearToDate converts a year integer to a date string.
// Returns empty string for year 0.
func yearToDate(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}
