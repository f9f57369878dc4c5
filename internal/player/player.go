// Package player launches external media players.
// Every invocation uses exec.CommandContext with an explicit argument slice,
// so stream URLs and headers never pass through a shell.
package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"anicat/internal/media"
)

// Player is the interface for media player implementations.
type Player interface {
	// Play blocks until the player exits or ctx is cancelled.
	Play(ctx context.Context, src media.StreamSource, title string) error

	// Name returns the player binary name.
	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool
}

// New creates a player by name. Unknown names get mpv.
func New(name string) Player {
	switch strings.ToLower(name) {
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &Generic{name: strings.ToLower(name)}
	default:
		return &MPV{}
	}
}

// SelectSource picks the source at the preferred tier, else the highest tier
// below it, else the lowest tier available.
func SelectSource(sources []media.StreamSource, preferred media.Quality) mo.Option[media.StreamSource] {
	if len(sources) == 0 {
		return mo.None[media.StreamSource]()
	}

	if exact, ok := lo.Find(sources, func(s media.StreamSource) bool { return s.Quality == preferred }); ok {
		return mo.Some(exact)
	}

	below := lo.Filter(sources, func(s media.StreamSource, _ int) bool { return s.Quality < preferred })
	if len(below) > 0 {
		return mo.Some(lo.MaxBy(below, func(a, b media.StreamSource) bool { return a.Quality > b.Quality }))
	}
	return mo.Some(lo.MinBy(sources, func(a, b media.StreamSource) bool { return a.Quality < b.Quality }))
}

// sortedHeaders returns "Key: Value" pairs in key order.
func sortedHeaders(h map[string]string) []string {
	keys := lo.Keys(h)
	slices.Sort(keys)
	return lo.Map(keys, func(k string, _ int) string { return k + ": " + h[k] })
}

// mpvStyleArgs builds the flags shared by mpv and the players that accept its options.
func mpvStyleArgs(src media.StreamSource, title string) []string {
	args := []string{src.URL, "--force-media-title=" + title}
	for _, h := range sortedHeaders(src.Headers) {
		args = append(args, "--http-header-fields-append="+h)
	}
	return args
}

// run starts the player attached to the terminal. okExit reports whether a
// non-zero exit code still counts as a normal quit.
func run(ctx context.Context, name string, args []string, okExit func(code int) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if okExit(exitErr.ExitCode()) {
			return nil
		}
		return fmt.Errorf("%s exited with code %d", name, exitErr.ExitCode())
	}
	return fmt.Errorf("running %s: %w", name, err)
}

func available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
