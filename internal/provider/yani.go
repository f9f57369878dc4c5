package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"anicat/internal/httputil"
	"anicat/internal/logging"
	"anicat/internal/media"
)

// searchLimit is the page size requested from the search endpoint.
const searchLimit = 20

// Yani implements the Provider interface for the api.yani.tv title API.
type Yani struct {
	base   string // e.g., "https://api.yani.tv"
	lang   string
	client *http.Client
	log    logrus.FieldLogger
}

// NewYani creates a new Yani provider. A nil client gets a hardened default.
func NewYani(base, lang string, client *http.Client, log logrus.FieldLogger) *Yani {
	if client == nil {
		client = httputil.NewClient()
	}
	if lang == "" {
		lang = "ru"
	}
	return &Yani{
		base:   strings.TrimRight(base, "/"),
		lang:   lang,
		client: client,
		log:    logging.OrStandard(log).WithField("provider", "yani"),
	}
}

// Search returns titles matching query.
func (y *Yani) Search(ctx context.Context, query string) ([]media.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	data, err := y.get(ctx, []string{"search"}, url.Values{
		"q":      {query},
		"limit":  {strconv.Itoa(searchLimit)},
		"offset": {"0"},
	})
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", query, err)
	}

	results, err := parseSearchResults(data)
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", query, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results found for %q", query)
	}
	return results, nil
}

// FetchFullTitle returns the title with the given id or alias, embeds included.
func (y *Yani) FetchFullTitle(ctx context.Context, id string) (media.Title, error) {
	if err := httputil.ValidateID(id); err != nil {
		return media.Title{}, fmt.Errorf("invalid title ID: %w", err)
	}

	data, err := y.get(ctx, []string{"anime", id}, url.Values{"need_videos": {"true"}})
	if err != nil {
		return media.Title{}, fmt.Errorf("getting title %s: %w", id, err)
	}

	title, err := parseTitle(data)
	if err != nil {
		return media.Title{}, fmt.Errorf("getting title %s: %w", id, err)
	}
	y.log.WithFields(logrus.Fields{"title": id, "embeds": len(title.Embeds)}).Debug("fetched title")
	return title, nil
}

// Ongoing returns the airing schedule.
func (y *Yani) Ongoing(ctx context.Context) ([]media.SearchResult, error) {
	data, err := y.get(ctx, []string{"anime", "schedule"}, nil)
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}

	results, err := parseOngoing(data)
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}
	return results, nil
}

func (y *Yani) get(ctx context.Context, path []string, params url.Values) ([]byte, error) {
	method := strings.Join(path, "/")
	u := httputil.BuildURL(y.base, path...)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	data, err := httputil.GetJSON(ctx, y.client, u, map[string]string{"Lang": y.lang})
	var se *httputil.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", method, ErrNotFound)
	}
	return data, err
}
