// Package tags reads the user comments of an Ogg Vorbis stream.
package tags

import (
	"strconv"
)

// Tag holds the common comment fields.
type Tag struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string

	TrackNumber int
	TotalTracks int
	DiscNumber  int
	TotalDiscs  int

	Date string // YYYY-MM-DD or YYYY

	// Raw holds every comment by lowercased field name.
	Raw map[string]string
}

// Year derives the year from the Date field.
// Returns 0 if Date is empty or cannot be parsed.
func (t *Tag) Year() int {
	if t.Date == "" {
		return 0
	}
	year := t.Date
	if len(year) > 4 {
		year = year[:4]
	}
	y, _ := strconv.Atoi(year)
	return y
}

// Empty reports whether the stream carries no comments at all.
func (t *Tag) Empty() bool {
	return len(t.Raw) == 0
}

// Track formats the track number as "N" or "N/M", or "" when unset.
func (t *Tag) Track() string {
	return numberPair(t.TrackNumber, t.TotalTracks)
}

// Disc formats the disc number like Track.
func (t *Tag) Disc() string {
	return numberPair(t.DiscNumber, t.TotalDiscs)
}

func numberPair(n, total int) string {
	switch {
	case n == 0:
		return ""
	case total == 0:
		return strconv.Itoa(n)
	default:
		return strconv.Itoa(n) + "/" + strconv.Itoa(total)
	}
}
