package player

import (
	"context"

	"anicat/internal/media"
)

// Generic implements the Player interface for players like iina and celluloid
// that accept mpv-compatible arguments.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool { return available(g.name) }

// Play launches the player and treats any exit code as a normal quit.
func (g *Generic) Play(ctx context.Context, src media.StreamSource, title string) error {
	return run(ctx, g.name, mpvStyleArgs(src, title), func(int) bool { return true })
}
