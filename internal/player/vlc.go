package player

import (
	"context"
	"net/http"

	"anicat/internal/media"
)

// VLC implements the Player interface for VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool { return available("vlc") }

// Play launches VLC. VLC exits non-zero on user close, which is not an error.
func (v *VLC) Play(ctx context.Context, src media.StreamSource, title string) error {
	return run(ctx, "vlc", vlcArgs(src, title), func(int) bool { return true })
}

// vlcArgs maps Referer and User-Agent to VLC's flags. VLC has no option
// for arbitrary request headers, so the rest are dropped.
func vlcArgs(src media.StreamSource, title string) []string {
	args := []string{src.URL, "--meta-title", title, "--play-and-exit"}

	h := http.Header{}
	for k, v := range src.Headers {
		h.Set(k, v)
	}
	if ref := h.Get("Referer"); ref != "" {
		args = append(args, "--http-referrer="+ref)
	}
	if ua := h.Get("User-Agent"); ua != "" {
		args = append(args, "--http-user-agent="+ua)
	}
	return args
}
