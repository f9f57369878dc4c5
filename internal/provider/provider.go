// Package provider defines the interface for anime catalog sources
// and their implementations.
package provider

import (
	"context"
	"errors"

	"anicat/internal/media"
)

// ErrNotFound is returned when the source has no record for an id.
var ErrNotFound = errors.New("not found")

// Provider is the interface that catalog sources must implement.
type Provider interface {
	// Search returns titles matching a query.
	Search(ctx context.Context, query string) ([]media.SearchResult, error)

	// FetchFullTitle returns a title with all of its embeds.
	FetchFullTitle(ctx context.Context, id string) (media.Title, error)

	// Ongoing returns currently airing titles that have at least one episode out.
	Ongoing(ctx context.Context) ([]media.SearchResult, error)
}
