package extract

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anicat/internal/media"
)

const srEmbed = "https://sovetromantica.com/embed/episode_1_1-subtitles"

func TestSovetRomanticaParse(t *testing.T) {
	page := `<script>
window.playerConfig = {"data":{"storages":{
  "720":{"src":"https://scdn.sovetromantica.com/anime/1/episode_1/720.m3u8","type":"hls"},
  "360":{"src":"//scdn.sovetromantica.com/anime/1/episode_1/360.mp4","type":"mp4"}
}}};
</script>`
	s := NewSovetRomantica(hostClient(t, pageHandler(http.StatusOK, page)), "", nil)

	got, err := s.Parse(context.Background(), srEmbed)
	require.NoError(t, err)
	assert.Equal(t, []media.StreamSource{
		{Format: media.FormatMP4, Quality: media.Quality360, URL: "https://scdn.sovetromantica.com/anime/1/episode_1/360.mp4"},
		{Format: media.FormatHLS, Quality: media.Quality720, URL: "https://scdn.sovetromantica.com/anime/1/episode_1/720.m3u8"},
	}, got)
}

func TestSovetRomanticaFailures(t *testing.T) {
	tests := []struct {
		name  string
		page  string
		stage Stage
	}{
		{"no config", "<html></html>", StageExtractPayload},
		{"bad json", "window.playerConfig = {data: nope};", StageExtractPayload},
		{"no storages", `window.playerConfig = {"data":{}};`, StageDecodeLinks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSovetRomantica(hostClient(t, pageHandler(http.StatusOK, tt.page)), "", nil)

			got, err := s.Parse(context.Background(), srEmbed)
			assert.Nil(t, got)
			requireStage(t, err, tt.stage)
		})
	}
}
