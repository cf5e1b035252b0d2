package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/vorbisdemux/internal/probecache"
	"github.com/llehouerou/vorbisdemux/internal/tags"
)

var (
	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(13)
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// renderReport formats a probe result and the stream's comments, when
// known, as a bordered block.
func renderReport(e probecache.Entry, t *tags.Tag, cached bool, v *verification) string {
	title := titleStyle.Render(filepath.Base(e.Path))
	if cached {
		title += " " + tagStyle.Render("(cached)")
	}

	rows := []string{
		title,
		row("Size", humanize.IBytes(uint64(max(e.Size, 0)))),
		row("Format", fmt.Sprintf("Vorbis, %d ch, %s Hz", e.Channels, humanize.Comma(int64(e.SampleRate)))),
		row("Block sizes", fmt.Sprintf("%d / %d", e.BlockSmall, e.BlockLarge)),
	}
	if e.Vendor != "" {
		rows = append(rows, row("Vendor", e.Vendor))
	}
	if t != nil {
		rows = append(rows, tagRows(t)...)
	}
	if e.AudioStart != nil {
		rows = append(rows, row("Audio start", "byte "+humanize.Comma(*e.AudioStart)))
	}
	if e.LastPageStart != nil && e.LastPageEnd != nil {
		rows = append(rows, row("Last page", fmt.Sprintf("bytes %s-%s",
			humanize.Comma(*e.LastPageStart), humanize.Comma(*e.LastPageEnd))))
	}

	if e.TotalSamples != nil {
		rows = append(rows, row("Samples", humanize.Comma(*e.TotalSamples)))
		if e.SampleRate > 0 {
			dur := time.Duration(float64(*e.TotalSamples) / float64(e.SampleRate) * float64(time.Second))
			rows = append(rows, row("Duration", formatDuration(dur)))
			if dur > 0 {
				bps := float64(e.Size*8) / dur.Seconds()
				rows = append(rows, row("Bitrate", humanize.SIWithDigits(bps, 0, "bit/s")))
			}
		}
	} else {
		rows = append(rows, row("Samples", warnStyle.Render("unknown")))
	}

	if v != nil {
		rows = append(rows, row("Verified", renderVerification(e, v)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func tagRows(t *tags.Tag) []string {
	var rows []string
	for _, f := range []struct{ label, value string }{
		{"Title", t.Title},
		{"Artist", t.Artist},
		{"Album", t.Album},
		{"Track", t.Track()},
		{"Date", t.Date},
		{"Genre", t.Genre},
	} {
		if f.value != "" {
			rows = append(rows, row(f.label, f.value))
		}
	}
	return rows
}

func renderVerification(e probecache.Entry, v *verification) string {
	switch {
	case v.err != nil:
		return warnStyle.Render("failed: " + v.err.Error())
	case e.TotalSamples != nil && *e.TotalSamples == v.samples:
		return okStyle.Render("length matches")
	default:
		return warnStyle.Render("oggvorbis reports " + humanize.Comma(v.samples) + " samples")
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := float64(d%time.Minute) / float64(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%06.3f", h, m, s)
	}
	return fmt.Sprintf("%d:%06.3f", m, s)
}
