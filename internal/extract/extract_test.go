package extract

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anicat/internal/media"
)

type fakeExtractor struct {
	name    string
	prefix  string
	sources []media.StreamSource
	err     error
	panics  bool
	levels  int
	calls   int
}

func (f *fakeExtractor) Name() string               { return f.name }
func (f *fakeExtractor) Accepts(rawURL string) bool { return strings.HasPrefix(rawURL, f.prefix) }

func (f *fakeExtractor) Parse(_ context.Context, _ string) ([]media.StreamSource, error) {
	f.calls++
	if f.panics {
		panic("boom")
	}
	return f.sources, f.err
}

type levelledExtractor struct {
	*fakeExtractor
}

func (l levelledExtractor) DomainLevels() int { return l.levels }

func hls(q media.Quality, rawURL string) media.StreamSource {
	return media.StreamSource{Format: media.FormatHLS, Quality: q, URL: rawURL}
}

func TestFindExtractorFirstMatchWins(t *testing.T) {
	first := &fakeExtractor{name: "first", prefix: "https://a.example/"}
	second := &fakeExtractor{name: "second", prefix: "https://a.example/v/"}
	r := NewRegistry([]Extractor{first, second})

	e, ok := r.FindExtractor("https://a.example/v/1")
	require.True(t, ok)
	assert.Equal(t, "first", e.Name())

	_, ok = r.FindExtractor("https://b.example/v/1")
	assert.False(t, ok)
}

func TestExtractSourcesUnsupportedHost(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := NewRegistry(nil, WithRegistryLogger(logger))

	got := r.ExtractSources(context.Background(), "https://unknown.example/embed/1")
	assert.Empty(t, got)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestExtractSourcesErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level logrus.Level
	}{
		{"soft", soft(StageCheckPage, "video not found", nil), logrus.DebugLevel},
		{"hard", errors.New("unexpected"), logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)
			fe := &fakeExtractor{name: "fake", prefix: "https://", err: tt.err}
			r := NewRegistry([]Extractor{fe}, WithRegistryLogger(logger))

			got := r.ExtractSources(context.Background(), "https://x.example/1")
			assert.Empty(t, got)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, tt.level, hook.LastEntry().Level)
		})
	}
}

func TestExtractSourcesRecoversPanic(t *testing.T) {
	logger, hook := test.NewNullLogger()
	fe := &fakeExtractor{name: "fake", prefix: "https://", panics: true}
	r := NewRegistry([]Extractor{fe}, WithRegistryLogger(logger))

	var got []media.StreamSource
	assert.NotPanics(t, func() {
		got = r.ExtractSources(context.Background(), "https://x.example/1")
	})
	assert.Empty(t, got)
	assert.Equal(t, "extractor panicked", hook.LastEntry().Message)
}

func TestExtractSourcesDedupe(t *testing.T) {
	fe := &fakeExtractor{
		name:   "fake",
		prefix: "https://",
		sources: []media.StreamSource{
			hls(media.Quality720, "https://cdn1.cloud.example/a.m3u8"),
			hls(media.Quality720, "https://cdn2.cloud.example/b.m3u8"),
			hls(media.Quality480, "https://cdn2.cloud.example/b.m3u8"),
		},
	}
	r := NewRegistry([]Extractor{fe})

	got := r.ExtractSources(context.Background(), "https://x.example/1")
	require.Len(t, got, 2)
	assert.Equal(t, "https://cdn1.cloud.example/a.m3u8", got[0].URL)
	assert.Equal(t, media.Quality480, got[1].Quality)
}

func TestExtractSourcesDomainLeveler(t *testing.T) {
	sources := []media.StreamSource{
		hls(media.Quality720, "https://cdn1.cloud.example/a.m3u8"),
		hls(media.Quality720, "https://cdn2.cloud.example/b.m3u8"),
	}
	fe := levelledExtractor{&fakeExtractor{name: "fake", prefix: "https://", sources: sources, levels: 3}}
	r := NewRegistry([]Extractor{fe})

	got := r.ExtractSources(context.Background(), "https://x.example/1")
	assert.Len(t, got, 2)
}

func TestDefault(t *testing.T) {
	r, err := Default(http.DefaultClient, Options{})
	require.NoError(t, err)

	var names []string
	for _, e := range r.Extractors() {
		names = append(names, e.Name())
	}
	assert.Equal(t, Names, names)

	r, err = Default(http.DefaultClient, Options{Names: []string{"SovetRomantica", "kodik"}})
	require.NoError(t, err)
	require.Len(t, r.Extractors(), 2)
	assert.Equal(t, sovetRomanticaName, r.Extractors()[0].Name())

	_, err = Default(http.DefaultClient, Options{Names: []string{"youtube"}})
	assert.Error(t, err)
}

func TestDefaultSharesAPIPath(t *testing.T) {
	r, err := Default(nil, Options{Names: []string{kodikName}})
	require.NoError(t, err)

	k, ok := r.Extractors()[0].(*Kodik)
	require.True(t, ok)
	assert.Same(t, DefaultAPIPath, k.apiPath)
}

func TestWrongExtractor(t *testing.T) {
	extractors := []Extractor{
		NewKodik(nil),
		NewSibnet(nil, "", nil),
		NewSovetRomantica(nil, "", nil),
	}

	for _, e := range extractors {
		t.Run(e.Name(), func(t *testing.T) {
			_, err := e.Parse(context.Background(), "https://unrelated.example/video")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrWrongExtractor)
			assert.False(t, IsSoft(err))

			var ce *ContractError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, e.Name(), ce.Extractor)
		})
	}
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://kodik.info/seria/1/abc/720p", kodikName},
		{"https://kodik.cc/video/2/def/720p", kodikName},
		{"http://kodik.info/seria/1/abc/720p", ""},
		{"https://video.sibnet.ru/shell.php?videoid=12345", sibnetName},
		{"https://sibnet.ru/video12345", sibnetName},
		{"https://sovetromantica.com/embed/episode_1_1-subtitles", sovetRomanticaName},
		{"https://sr-cdn.com/embed/1", sovetRomanticaName},
		{"https://aniboom.one/embed/1", ""},
	}

	r, err := Default(nil, Options{})
	require.NoError(t, err)

	for _, tt := range tests {
		e, ok := r.FindExtractor(tt.url)
		if tt.want == "" {
			assert.False(t, ok, tt.url)
			continue
		}
		require.True(t, ok, tt.url)
		assert.Equal(t, tt.want, e.Name(), tt.url)
	}
}

func TestSoftFailure(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(soft(StageFetchPage, "page request failed", cause))

	assert.True(t, IsSoft(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetching page: page request failed: dial tcp: refused", err.Error())
	assert.Equal(t, "decoding links: no playable tiers", soft(StageDecodeLinks, "no playable tiers", nil).Error())
	assert.False(t, IsSoft(cause))
}
