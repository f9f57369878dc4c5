package extract

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anicat/internal/media"
)

const sibnetEmbed = "https://video.sibnet.ru/shell.php?videoid=4242"

func pageHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

func TestSibnetParse(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			"player src",
			`<script>player.src([{src: "/v/8f2c/4242.mp4", type: "video/mp4"}]);</script>`,
			"https://video.sibnet.ru/v/8f2c/4242.mp4",
		},
		{
			"escaped json src",
			`{"src":"\/v\/8f2c\/4242.mp4"}`,
			"https://video.sibnet.ru/v/8f2c/4242.mp4",
		},
		{
			"og video meta",
			`<html><head><meta property="og:video" content="//dv98.sibnet.ru/45/42/4242.mp4"></head></html>`,
			"https://dv98.sibnet.ru/45/42/4242.mp4",
		},
		{
			"video_src",
			`<script>var video_src = 'https://dv98.sibnet.ru/4242.mp4';</script>`,
			"https://dv98.sibnet.ru/4242.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSibnet(hostClient(t, pageHandler(http.StatusOK, tt.page)), "", nil)

			got, err := s.Parse(context.Background(), sibnetEmbed)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, media.StreamSource{
				Format:  media.FormatMP4,
				Quality: media.Quality480,
				URL:     tt.want,
				Headers: map[string]string{"Referer": sibnetEmbed},
			}, got[0])
		})
	}
}

func TestSibnetNoLink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := NewSibnet(hostClient(t, pageHandler(http.StatusOK, "<html>removed</html>")), "", logger)

	got, err := s.Parse(context.Background(), sibnetEmbed)
	assert.Nil(t, got)
	requireStage(t, err, StageExtractPayload)
	assert.Equal(t, "sibnet extraction failed", hook.LastEntry().Message)
}

func TestSibnetStatus(t *testing.T) {
	s := NewSibnet(hostClient(t, pageHandler(http.StatusNotFound, "")), "", nil)

	_, err := s.Parse(context.Background(), sibnetEmbed)
	requireStage(t, err, StageFetchPage)
}

func TestResolveSibnet(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/v/a.mp4", "https://video.sibnet.ru/v/a.mp4"},
		{"//dv1.sibnet.ru/a.mp4", "https://dv1.sibnet.ru/a.mp4"},
		{"https://dv1.sibnet.ru/a.mp4", "https://dv1.sibnet.ru/a.mp4"},
	}
	for _, tt := range tests {
		if got := resolveSibnet(tt.in); got != tt.want {
			t.Errorf("resolveSibnet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
