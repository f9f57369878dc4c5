package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/avast/retry-go/v4"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"anicat/internal/httputil"
	"anicat/internal/logging"
	"anicat/internal/media"
)

const kodikName = "kodik"

var kodikURLRule = regexp.MustCompile(`^https://kodik\.(info|biz|cc)/`)

// Kodik extracts HLS streams from Kodik player embeds.
//
// A page carries signed values that are posted to an API endpoint whose
// path is hidden in the player bundle. The path changes from time to time,
// so it is cached in an APIPathCell and rediscovered once when the API
// rejects it.
type Kodik struct {
	fetcher
	apiPath *APIPathCell
	log     logrus.FieldLogger
}

// KodikOption configures a Kodik extractor.
type KodikOption func(*Kodik)

// WithAPIPath sets the cell the discovered API path is cached in.
func WithAPIPath(cell *APIPathCell) KodikOption {
	return func(k *Kodik) { k.apiPath = cell }
}

// WithUserAgent overrides the User-Agent sent to Kodik.
func WithUserAgent(ua string) KodikOption {
	return func(k *Kodik) {
		if ua != "" {
			k.userAgent = ua
		}
	}
}

// WithLogger sets the extractor logger.
func WithLogger(l logrus.FieldLogger) KodikOption {
	return func(k *Kodik) { k.log = l }
}

// NewKodik creates a Kodik extractor. Without WithAPIPath it gets a
// private cell.
func NewKodik(client *http.Client, opts ...KodikOption) *Kodik {
	k := &Kodik{fetcher: newFetcher(client, "")}
	for _, opt := range opts {
		opt(k)
	}
	if k.apiPath == nil {
		k.apiPath = &APIPathCell{}
	}
	k.log = logging.OrStandard(k.log).WithField("extractor", kodikName)
	return k
}

func (k *Kodik) Name() string { return kodikName }

func (k *Kodik) Accepts(rawURL string) bool { return kodikURLRule.MatchString(rawURL) }

// Parse resolves a Kodik embed page into one source per quality tier.
func (k *Kodik) Parse(ctx context.Context, rawURL string) ([]media.StreamSource, error) {
	if !k.Accepts(rawURL) {
		return nil, &ContractError{Extractor: kodikName, URL: rawURL}
	}

	sources, err := k.parse(ctx, rawURL)
	if err != nil {
		k.log.WithField("url", rawURL).WithError(err).Warn("kodik extraction failed")
		return nil, err
	}
	return sources, nil
}

func (k *Kodik) parse(ctx context.Context, rawURL string) ([]media.StreamSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, soft(StageFetchPage, "malformed url", err)
	}
	host := u.Host

	status, page, err := k.get(ctx, rawURL, nil)
	if err != nil {
		return nil, soft(StageFetchPage, "page request failed", err)
	}

	if isServerError(status, page) {
		return nil, soft(StageCheckPage, "server error", nil)
	}
	if isNotFound(page) {
		return nil, soft(StageCheckPage, "video not found", nil)
	}
	if status < 200 || status > 299 {
		return nil, soft(StageFetchPage, "unexpected status "+strconv.Itoa(status), nil)
	}

	payload, missing, ok := findPayload(page)
	if !ok {
		return nil, soft(StageExtractPayload, "missing "+missing, nil)
	}
	script := findScriptPath(page)

	body, err := k.callAPI(ctx, rawURL, host, script, payload)
	if err != nil {
		return nil, err
	}
	return k.decodeLinks(body)
}

// callAPI posts the payload, rediscovering the API path and retrying once
// when the cached path is rejected.
func (k *Kodik) callAPI(ctx context.Context, rawURL, host string, script mo.Option[string], payload kodikPayload) ([]byte, error) {
	headers := map[string]string{
		"Origin":  "https://" + host,
		"Referer": rawURL,
		"Accept":  "application/json, text/javascript, */*; q=0.01",
	}

	var (
		aborted  *SoftFailure
		attempts int
	)
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			attempts++

			path, ok := k.apiPath.Get()
			if !ok {
				var sf *SoftFailure
				path, sf = k.resolvePath(ctx, host, script)
				if sf != nil {
					aborted = sf
					return nil, retry.Unrecoverable(sf)
				}
			}

			body, err := k.postForm(ctx, "https://"+host+path, payload.form(), headers)
			var se *httputil.StatusError
			if errors.As(err, &se) {
				if k.apiPath.InvalidateIf(path) {
					k.log.WithField("path", path).Debug("api path rejected, rediscovering")
				}
				return nil, err
			}
			if err != nil {
				aborted = soft(StageCallAPI, "api request failed", err)
				return nil, retry.Unrecoverable(aborted)
			}
			return body, nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *httputil.StatusError
			return errors.As(err, &se)
		}),
	)

	switch {
	case aborted != nil:
		return nil, aborted
	case err == nil:
		return body, nil
	case ctx.Err() != nil:
		return nil, soft(StageCallAPI, "cancelled", ctx.Err())
	case attempts > 1:
		return nil, soft(StageRetryPath, "api rejected rediscovered path", err)
	default:
		return nil, soft(StageCallAPI, "api rejected request", err)
	}
}

// resolvePath reads the API path from the player bundle and caches it.
// A cancelled lookup leaves the cell untouched.
func (k *Kodik) resolvePath(ctx context.Context, host string, script mo.Option[string]) (string, *SoftFailure) {
	src, ok := script.Get()
	if !ok {
		return "", soft(StageResolvePath, "missing player script", nil)
	}

	status, body, err := k.get(ctx, "https://"+host+src, nil)
	if err != nil {
		return "", soft(StageResolvePath, "player script request failed", err)
	}
	if status < 200 || status > 299 {
		return "", soft(StageResolvePath, "player script status "+strconv.Itoa(status), nil)
	}

	path, ok := findAPIPath(body).Get()
	if !ok {
		return "", soft(StageResolvePath, "api path not found in player script", nil)
	}

	if ctx.Err() != nil {
		return "", soft(StageResolvePath, "cancelled", ctx.Err())
	}
	k.apiPath.Set(path)
	return path, nil
}

type kodikLink struct {
	Src  string `json:"src"`
	Type string `json:"type"`
}

type kodikResponse struct {
	Links map[string][]kodikLink `json:"links"`
}

// decodeLinks emits one source per known tier, lowest first.
func (k *Kodik) decodeLinks(body []byte) ([]media.StreamSource, error) {
	var resp kodikResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, soft(StageDecodeLinks, "malformed api response", err)
	}

	var sources []media.StreamSource
	for _, q := range media.Qualities {
		if q == media.QualityAudio {
			continue
		}
		links := resp.Links[strconv.Itoa(int(q))]
		if len(links) == 0 {
			continue
		}

		link, err := decodeLink(links[0].Src)
		if err != nil {
			k.log.WithField("quality", int(q)).WithError(err).Warn("skipping undecodable tier")
			continue
		}

		src := media.StreamSource{Format: formatOf(link), Quality: q, URL: link}
		if err := src.Validate(); err != nil {
			k.log.WithField("quality", int(q)).WithError(err).Warn("skipping invalid tier")
			continue
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, soft(StageDecodeLinks, "no playable tiers", nil)
	}
	return sources, nil
}
