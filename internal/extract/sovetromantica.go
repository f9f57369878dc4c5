package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"

	"github.com/sirupsen/logrus"

	"anicat/internal/httputil"
	"anicat/internal/logging"
	"anicat/internal/media"
)

const sovetRomanticaName = "sovetromantica"

var (
	sovetRomanticaURLRule = regexp.MustCompile(`^https?://(sovetromantica\.(com|moe)|sr-cdn\.com)/embed/.+`)

	rePlayerConfig = regexp.MustCompile(`window\.playerConfig\s*=\s*({[\s\S]+?});`)
)

type srStorage struct {
	Src  string `json:"src"`
	Type string `json:"type"`
}

type srPlayerConfig struct {
	Data struct {
		Storages map[string]srStorage `json:"storages"`
	} `json:"data"`
}

// SovetRomantica extracts streams from the SovetRomantica embed player.
type SovetRomantica struct {
	fetcher
	log logrus.FieldLogger
}

// NewSovetRomantica creates a SovetRomantica extractor.
func NewSovetRomantica(client *http.Client, userAgent string, log logrus.FieldLogger) *SovetRomantica {
	return &SovetRomantica{
		fetcher: newFetcher(client, userAgent),
		log:     logging.OrStandard(log).WithField("extractor", sovetRomanticaName),
	}
}

func (s *SovetRomantica) Name() string { return sovetRomanticaName }

func (s *SovetRomantica) Accepts(rawURL string) bool {
	return sovetRomanticaURLRule.MatchString(rawURL)
}

func (s *SovetRomantica) Parse(ctx context.Context, rawURL string) ([]media.StreamSource, error) {
	if !s.Accepts(rawURL) {
		return nil, &ContractError{Extractor: sovetRomanticaName, URL: rawURL}
	}

	sources, err := s.parse(ctx, rawURL)
	if err != nil {
		s.log.WithField("url", rawURL).WithError(err).Warn("sovetromantica extraction failed")
		return nil, err
	}
	return sources, nil
}

func (s *SovetRomantica) parse(ctx context.Context, rawURL string) ([]media.StreamSource, error) {
	status, page, err := s.get(ctx, rawURL, nil)
	if err != nil {
		return nil, soft(StageFetchPage, "page request failed", err)
	}
	if status < 200 || status > 299 {
		return nil, soft(StageFetchPage, "unexpected status "+strconv.Itoa(status), nil)
	}

	raw, ok := firstGroup(rePlayerConfig, page).Get()
	if !ok {
		return nil, soft(StageExtractPayload, "player config not found", nil)
	}

	var cfg srPlayerConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, soft(StageExtractPayload, "malformed player config", err)
	}

	var sources []media.StreamSource
	for _, q := range media.Qualities {
		st, ok := cfg.Data.Storages[strconv.Itoa(int(q))]
		if !ok || st.Src == "" {
			continue
		}

		format := media.FormatHLS
		if st.Type == "mp4" {
			format = media.FormatMP4
		}
		src := media.StreamSource{Format: format, Quality: q, URL: httputil.EnsureHTTPS(st.Src)}
		if err := src.Validate(); err != nil {
			s.log.WithField("quality", int(q)).WithError(err).Warn("skipping invalid storage")
			continue
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, soft(StageDecodeLinks, "no storages", nil)
	}
	return sources, nil
}
