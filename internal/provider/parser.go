package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"anicat/internal/media"
)

// envelope wraps every API reply.
type envelope[T any] struct {
	Response T `json:"response"`
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(b)
	}
	return nil
}

type apiStatus struct {
	Title string `json:"title"`
	Alias string `json:"alias"`
}

type apiEpisodes struct {
	Aired int `json:"aired"`
	Count int `json:"count"`
}

type apiSkip struct {
	Time   flexString `json:"time"`
	Length flexString `json:"length"`
}

type apiVideo struct {
	VideoID   int        `json:"video_id"`
	IframeURL string     `json:"iframe_url"`
	Number    flexString `json:"number"`
	Index     int        `json:"index"`
	Data      struct {
		Dubbing string `json:"dubbing"`
		Player  string `json:"player"`
	} `json:"data"`
	Skips struct {
		Opening apiSkip `json:"opening"`
		Ending  apiSkip `json:"ending"`
	} `json:"skips"`
}

type apiAnime struct {
	AnimeID     int         `json:"anime_id"`
	AnimeURL    string      `json:"anime_url"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Year        int         `json:"year"`
	Status      apiStatus   `json:"anime_status"`
	Episodes    apiEpisodes `json:"episodes"`
	Videos      []apiVideo  `json:"videos"`
}

// decode unwraps the response envelope.
func decode[T any](data []byte) (T, error) {
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		var zero T
		return zero, fmt.Errorf("parsing response: %w", err)
	}
	return env.Response, nil
}

// parseTitle maps a full anime record. Embeds keep the API's order.
func parseTitle(data []byte) (media.Title, error) {
	a, err := decode[apiAnime](data)
	if err != nil {
		return media.Title{}, err
	}
	if a.AnimeID == 0 {
		return media.Title{}, fmt.Errorf("response has no anime record: %w", ErrNotFound)
	}

	return media.Title{
		ID:            strconv.Itoa(a.AnimeID),
		Alias:         a.AnimeURL,
		Name:          strings.TrimSpace(a.Title),
		Description:   strings.TrimSpace(a.Description),
		Year:          a.Year,
		Status:        a.Status.Title,
		EpisodesAired: a.Episodes.Aired,
		EpisodesTotal: a.Episodes.Count,
		Embeds:        lo.Map(a.Videos, toEmbed),
	}, nil
}

func toEmbed(v apiVideo, i int) media.RawEmbed {
	index := v.Index
	if index == 0 {
		index = i
	}
	return media.RawEmbed{
		VideoID:  v.VideoID,
		EmbedURL: strings.TrimSpace(v.IframeURL),
		Dubbing:  strings.TrimSpace(v.Data.Dubbing),
		Player:   strings.TrimSpace(v.Data.Player),
		Episode:  strings.TrimSpace(string(v.Number)),
		Index:    index,
		Skips: media.Skips{
			Opening: media.Skip{Time: string(v.Skips.Opening.Time), Length: string(v.Skips.Opening.Length)},
			Ending:  media.Skip{Time: string(v.Skips.Ending.Time), Length: string(v.Skips.Ending.Length)},
		},
	}
}

func toResult(a apiAnime, _ int) media.SearchResult {
	return media.SearchResult{
		ID:          strconv.Itoa(a.AnimeID),
		Alias:       a.AnimeURL,
		Name:        strings.TrimSpace(a.Title),
		Year:        a.Year,
		Description: strings.TrimSpace(a.Description),
	}
}

// parseSearchResults maps a search listing, skipping records without an id.
func parseSearchResults(data []byte) ([]media.SearchResult, error) {
	list, err := decode[[]apiAnime](data)
	if err != nil {
		return nil, err
	}
	list = lo.Filter(list, func(a apiAnime, _ int) bool { return a.AnimeID != 0 })
	return lo.Map(list, toResult), nil
}

// parseOngoing maps the airing schedule, keeping titles with aired episodes.
func parseOngoing(data []byte) ([]media.SearchResult, error) {
	list, err := decode[[]apiAnime](data)
	if err != nil {
		return nil, err
	}
	list = lo.Filter(list, func(a apiAnime, _ int) bool { return a.AnimeID != 0 && a.Episodes.Aired > 0 })
	return lo.Map(list, toResult), nil
}
