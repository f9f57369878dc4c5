package player

import (
	"context"

	"anicat/internal/media"
)

// mpvQuit is mpv's exit code when playback is stopped by the user.
const mpvQuit = 4

// MPV implements the Player interface for mpv.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool { return available("mpv") }

// Play launches mpv with the source headers attached.
func (m *MPV) Play(ctx context.Context, src media.StreamSource, title string) error {
	return run(ctx, "mpv", mpvArgs(src, title), func(code int) bool { return code == mpvQuit })
}

func mpvArgs(src media.StreamSource, title string) []string {
	return append(mpvStyleArgs(src, title), "--really-quiet")
}
