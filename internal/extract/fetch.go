package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"anicat/internal/httputil"
)

// fetcher performs the page and API requests shared by all extractors.
type fetcher struct {
	client    *http.Client
	userAgent string
}

func newFetcher(client *http.Client, userAgent string) fetcher {
	if client == nil {
		client = httputil.NewClient()
	}
	if userAgent == "" {
		userAgent = httputil.DefaultUserAgent
	}
	return fetcher{client: client, userAgent: userAgent}
}

// get returns the status and body of rawURL. Non-2xx statuses are not errors.
func (f fetcher) get(ctx context.Context, rawURL string, headers map[string]string) (int, string, error) {
	req, err := httputil.NewRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", err
	}
	return f.do(req, headers, httputil.MaxPageSize)
}

// postForm submits form to rawURL and fails with *httputil.StatusError on a non-2xx reply.
func (f fetcher) postForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) ([]byte, error) {
	req, err := httputil.NewRequest(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := f.do(req, headers, httputil.MaxJSONSize)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &httputil.StatusError{StatusCode: status, URL: rawURL}
	}
	return []byte(body), nil
}

func (f fetcher) do(req *http.Request, headers map[string]string, limit int64) (int, string, error) {
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}

	body, err := httputil.ReadBody(resp, limit)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}
