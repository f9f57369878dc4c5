// Package media defines shared types for the anicat application.
package media

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultDomainLevels is how many trailing host labels are compared when
// deciding whether two sources point at the same CDN.
const DefaultDomainLevels = 2

// Format is the container or manifest type of a stream.
type Format string

const (
	FormatMP4   Format = "mp4"
	FormatHLS   Format = "m3u8"
	FormatDASH  Format = "mpd"
	FormatAudio Format = "audio"
	FormatWebM  Format = "webm"
)

// Quality is a coarse resolution bucket. QualityAudio marks audio-only sources.
type Quality int

const (
	QualityAudio Quality = 0
	Quality144   Quality = 144
	Quality240   Quality = 240
	Quality360   Quality = 360
	Quality480   Quality = 480
	Quality720   Quality = 720
	Quality1080  Quality = 1080
)

// Qualities lists every known tier in ascending order.
var Qualities = []Quality{QualityAudio, Quality144, Quality240, Quality360, Quality480, Quality720, Quality1080}

// Valid reports whether q is one of the known tiers.
func (q Quality) Valid() bool {
	for _, known := range Qualities {
		if q == known {
			return true
		}
	}
	return false
}

func (q Quality) String() string {
	if q == QualityAudio {
		return "audio"
	}
	return fmt.Sprintf("%dp", int(q))
}

// StreamSource is one playable stream resolved from an embed.
type StreamSource struct {
	Format  Format            `json:"format"`
	Quality Quality           `json:"quality"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Validate checks that the URL is absolute with an explicit scheme.
func (s StreamSource) Validate() error {
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("malformed stream URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("stream URL %q is not absolute", s.URL)
	}
	return nil
}

// Equal compares format, quality and the registrable domain of the URL host.
func (s StreamSource) Equal(o StreamSource) bool {
	return s.EqualAt(o, DefaultDomainLevels)
}

// EqualAt is Equal with an explicit number of host labels to compare.
func (s StreamSource) EqualAt(o StreamSource, levels int) bool {
	return s.Format == o.Format &&
		s.Quality == o.Quality &&
		s.Domain(levels) == o.Domain(levels)
}

// Domain returns the registrable domain of the source URL, or "" if it does not parse.
func (s StreamSource) Domain(levels int) string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return RegistrableDomain(u.Hostname(), levels)
}

func (s StreamSource) String() string {
	host := s.URL
	if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	return fmt.Sprintf("[%d] %s...%s", int(s.Quality), host, s.Format)
}

// RegistrableDomain truncates host to its last levels labels.
// Non-positive levels fall back to DefaultDomainLevels.
func RegistrableDomain(host string, levels int) string {
	if levels <= 0 {
		levels = DefaultDomainLevels
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	parts := strings.Split(host, ".")
	if len(parts) <= levels {
		return host
	}
	return strings.Join(parts[len(parts)-levels:], ".")
}

// Skip is an opening or ending marker inside an episode.
type Skip struct {
	Time   string `json:"time"`
	Length string `json:"length"`
}

// Skips holds the optional opening/ending markers of an embed.
type Skips struct {
	Opening Skip `json:"opening"`
	Ending  Skip `json:"ending"`
}

// RawEmbed is one embed reference as returned by the title API.
type RawEmbed struct {
	VideoID  int    // API video record ID
	EmbedURL string // Embed page URL, possibly protocol-relative
	Dubbing  string // Dubbing/translation team label
	Player   string // Player (embed host) label
	Episode  string // Episode number as sent by the API, e.g. "12"
	Index    int    // Position in the API's sequence
	Skips    Skips
}

// Title is a fully fetched anime record.
type Title struct {
	ID            string
	Alias         string
	Name          string
	Description   string
	Year          int
	Status        string
	EpisodesAired int
	EpisodesTotal int
	Embeds        []RawEmbed
}

// SearchResult is a listing entry from search or the airing schedule.
type SearchResult struct {
	ID          string `json:"id"`
	Alias       string `json:"alias,omitempty"`
	Name        string `json:"name"`
	Year        int    `json:"year,omitempty"`
	Description string `json:"description,omitempty"`
}
