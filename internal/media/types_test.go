package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		host   string
		levels int
		want   string
	}{
		{"a.cdn1.example.com", 2, "example.com"},
		{"example.com", 2, "example.com"},
		{"localhost", 2, "localhost"},
		{"a.b.example.co.uk", 3, "example.co.uk"},
		{"A.Example.COM.", 2, "example.com"},
		{"x.y.example.com", 0, "example.com"},
	}

	for _, tt := range tests {
		got := RegistrableDomain(tt.host, tt.levels)
		if got != tt.want {
			t.Errorf("RegistrableDomain(%q, %d) = %q, want %q", tt.host, tt.levels, got, tt.want)
		}
	}
}

func TestStreamSourceEqualIgnoresCDNSubdomain(t *testing.T) {
	a := StreamSource{Format: FormatHLS, Quality: Quality720, URL: "https://a.cdn1.example.com/x.m3u8"}
	b := StreamSource{Format: FormatHLS, Quality: Quality720, URL: "https://b.cdn2.example.com/x.m3u8"}
	c := StreamSource{Format: FormatHLS, Quality: Quality720, URL: "https://a.cdn1.other.com/x.m3u8"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, b.Equal(c))
}

func TestStreamSourceEqualComparesFormatAndQuality(t *testing.T) {
	base := StreamSource{Format: FormatHLS, Quality: Quality720, URL: "https://a.example.com/x.m3u8"}

	otherTier := base
	otherTier.Quality = Quality480
	assert.False(t, base.Equal(otherTier))

	otherFormat := base
	otherFormat.Format = FormatMP4
	assert.False(t, base.Equal(otherFormat))
}

func TestStreamSourceEqualAtDeeperLevels(t *testing.T) {
	a := StreamSource{Format: FormatHLS, Quality: Quality360, URL: "https://n1.cloud.kodik-storage.com/a.m3u8"}
	b := StreamSource{Format: FormatHLS, Quality: Quality360, URL: "https://n2.cloud.kodik-storage.com/a.m3u8"}
	c := StreamSource{Format: FormatHLS, Quality: Quality360, URL: "https://n2.edge.kodik-storage.com/a.m3u8"}

	assert.True(t, a.EqualAt(c, 2))
	assert.True(t, a.EqualAt(b, 3))
	assert.False(t, a.EqualAt(c, 3))
}

func TestStreamSourceValidate(t *testing.T) {
	assert.NoError(t, StreamSource{URL: "https://example.com/a.mp4"}.Validate())
	assert.Error(t, StreamSource{URL: "//example.com/a.mp4"}.Validate())
	assert.Error(t, StreamSource{URL: "example.com/a.mp4"}.Validate())
}

func TestStreamSourceString(t *testing.T) {
	s := StreamSource{Format: FormatHLS, Quality: Quality720, URL: "https://cdn.example.com/x.m3u8"}
	assert.Equal(t, "[720] cdn.example.com...m3u8", s.String())
}

func TestQuality(t *testing.T) {
	assert.True(t, Quality720.Valid())
	assert.False(t, Quality(721).Valid())
	assert.Equal(t, "audio", QualityAudio.String())
	assert.Equal(t, "1080p", Quality1080.String())
}
