package extract

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"anicat/internal/httputil"
	"anicat/internal/logging"
	"anicat/internal/media"
)

const (
	sibnetName = "sibnet"
	sibnetBase = "https://video.sibnet.ru"
)

var (
	sibnetURLRule = regexp.MustCompile(`^https?://(video\.)?sibnet\.ru/(video\d+|shell\.php\?videoid=\d+)`)

	reSibnetSrc      = regexp.MustCompile(`src"?\s*:\s*["']([^"']+\.mp4)["']`)
	reSibnetVideoSrc = regexp.MustCompile(`video_src\s*=\s*["']([^"']+\.mp4)["']`)
)

// Sibnet extracts the single MP4 stream of a Sibnet video page.
type Sibnet struct {
	fetcher
	log logrus.FieldLogger
}

// NewSibnet creates a Sibnet extractor.
func NewSibnet(client *http.Client, userAgent string, log logrus.FieldLogger) *Sibnet {
	return &Sibnet{
		fetcher: newFetcher(client, userAgent),
		log:     logging.OrStandard(log).WithField("extractor", sibnetName),
	}
}

func (s *Sibnet) Name() string { return sibnetName }

func (s *Sibnet) Accepts(rawURL string) bool { return sibnetURLRule.MatchString(rawURL) }

func (s *Sibnet) Parse(ctx context.Context, rawURL string) ([]media.StreamSource, error) {
	if !s.Accepts(rawURL) {
		return nil, &ContractError{Extractor: sibnetName, URL: rawURL}
	}

	status, page, err := s.get(ctx, rawURL, nil)
	if err != nil {
		return nil, s.fail(rawURL, soft(StageFetchPage, "page request failed", err))
	}
	if status < 200 || status > 299 {
		return nil, s.fail(rawURL, soft(StageFetchPage, "unexpected status "+strconv.Itoa(status), nil))
	}

	ref, ok := firstPresent(
		func() mo.Option[string] { return findSibnetSrc(page) },
		func() mo.Option[string] { return findSibnetMeta(page) },
		func() mo.Option[string] { return firstGroup(reSibnetVideoSrc, page) },
	).Get()
	if !ok {
		return nil, s.fail(rawURL, soft(StageExtractPayload, "mp4 link not found", nil))
	}

	src := media.StreamSource{
		Format:  media.FormatMP4,
		Quality: media.Quality480,
		URL:     resolveSibnet(ref),
		Headers: map[string]string{"Referer": rawURL},
	}
	if err := src.Validate(); err != nil {
		return nil, s.fail(rawURL, soft(StageDecodeLinks, "invalid mp4 link", err))
	}
	return []media.StreamSource{src}, nil
}

func (s *Sibnet) fail(rawURL string, sf *SoftFailure) error {
	s.log.WithField("url", rawURL).WithError(sf).Warn("sibnet extraction failed")
	return sf
}

// findSibnetSrc reads the player's src: assignment, unescaping JSON slashes.
func findSibnetSrc(page string) mo.Option[string] {
	v, ok := firstGroup(reSibnetSrc, page).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(strings.ReplaceAll(v, `\/`, "/"))
}

// findSibnetMeta reads the og:video meta tag when it points at an mp4.
func findSibnetMeta(page string) mo.Option[string] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return mo.None[string]()
	}
	content, ok := doc.Find(`meta[property="og:video"], meta[property="og:video:url"]`).First().Attr("content")
	if !ok || !strings.HasSuffix(content, ".mp4") {
		return mo.None[string]()
	}
	return mo.Some(content)
}

// resolveSibnet makes a Sibnet link absolute. Root-relative paths belong
// to video.sibnet.ru.
func resolveSibnet(ref string) string {
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return sibnetBase + ref
	}
	return httputil.EnsureHTTPS(ref)
}
