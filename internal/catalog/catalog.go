// Package catalog groups a title's embeds into a Player → Dubber → Episode
// tree and resolves episode sources on demand.
package catalog

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"anicat/internal/extract"
	"anicat/internal/media"
)

// Finder reports which extractor, if any, handles an embed URL.
// *extract.Registry implements it.
type Finder interface {
	FindExtractor(rawURL string) (extract.Extractor, bool)
}

// Resolver turns an embed URL into stream sources. *extract.Registry implements it.
type Resolver interface {
	ExtractSources(ctx context.Context, rawURL string) []media.StreamSource
}

// Catalog is the playable embed tree of one title. It is read-only once
// Build returns: callers must not modify Players, Dubbers or Episodes.
// The label accessors return copies and are safe to modify.
type Catalog struct {
	TitleID string
	Name    string
	Players []*PlayerNode
}

// PlayerNode groups the embeds of one player. Dubbers is read-only.
type PlayerNode struct {
	Label   string
	Dubbers []*DubberNode
}

// DubberNode groups one dubbing team's episodes within a player.
// Episodes is read-only.
type DubberNode struct {
	Label    string
	Episodes []*EpisodeNode
}

// State is the resolution state of an episode.
type State int

const (
	Unresolved State = iota
	Resolved
	Empty
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Empty:
		return "empty"
	default:
		return "unresolved"
	}
}

// EpisodeNode is one embed, resolved to sources lazily.
type EpisodeNode struct {
	Number   string
	EmbedURL string
	Embed    media.RawEmbed

	mu      sync.Mutex
	state   State
	sources []media.StreamSource
}

// Build groups title embeds by player and dubber. Embeds that no extractor
// accepts are left out. Players and dubbers keep first-seen order; episodes
// are sorted by number.
func Build(title media.Title, finder Finder) *Catalog {
	c := &Catalog{TitleID: title.ID, Name: title.Name}

	players := map[string]*PlayerNode{}
	dubbers := map[[2]string]*DubberNode{}

	for _, embed := range title.Embeds {
		embedURL := normalizeURL(embed.EmbedURL)
		if embedURL == "" {
			continue
		}
		if _, ok := finder.FindExtractor(embedURL); !ok {
			continue
		}

		p, ok := players[embed.Player]
		if !ok {
			p = &PlayerNode{Label: embed.Player}
			players[embed.Player] = p
			c.Players = append(c.Players, p)
		}

		key := [2]string{embed.Player, embed.Dubbing}
		d, ok := dubbers[key]
		if !ok {
			d = &DubberNode{Label: embed.Dubbing}
			dubbers[key] = d
			p.Dubbers = append(p.Dubbers, d)
		}

		d.Episodes = append(d.Episodes, &EpisodeNode{
			Number:   embed.Episode,
			EmbedURL: embedURL,
			Embed:    embed,
		})
	}

	for _, d := range dubbers {
		sortEpisodes(d.Episodes)
	}
	return c
}

// normalizeURL gives protocol-relative URLs an https scheme.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// episodeKey orders numeric episodes ascending and puts the rest last.
func episodeKey(number string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(number), 64)
	if err != nil || math.IsNaN(f) {
		return math.Inf(1)
	}
	return f
}

func sortEpisodes(eps []*EpisodeNode) {
	slices.SortStableFunc(eps, func(a, b *EpisodeNode) int {
		ka, kb := episodeKey(a.Number), episodeKey(b.Number)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		default:
			return 0
		}
	})
}

// Empty reports whether no embed survived filtering.
func (c *Catalog) Empty() bool { return len(c.Players) == 0 }

// EmbedCount returns the number of episodes across all players and dubbers.
func (c *Catalog) EmbedCount() int {
	return lo.SumBy(c.Players, func(p *PlayerNode) int {
		return lo.SumBy(p.Dubbers, func(d *DubberNode) int { return len(d.Episodes) })
	})
}

// Player looks up a player by label.
func (c *Catalog) Player(label string) mo.Option[*PlayerNode] {
	return mo.TupleToOption(lo.Find(c.Players, func(p *PlayerNode) bool { return p.Label == label }))
}

// PlayerLabels returns player labels in catalog order.
func (c *Catalog) PlayerLabels() []string {
	return lo.Map(c.Players, func(p *PlayerNode, _ int) string { return p.Label })
}

// Dubber looks up a dubbing team by label.
func (p *PlayerNode) Dubber(label string) mo.Option[*DubberNode] {
	return mo.TupleToOption(lo.Find(p.Dubbers, func(d *DubberNode) bool { return d.Label == label }))
}

// DubberLabels returns dubber labels in first-seen order.
func (p *PlayerNode) DubberLabels() []string {
	return lo.Map(p.Dubbers, func(d *DubberNode, _ int) string { return d.Label })
}

// Episode looks up an episode by number. Numeric numbers match by value,
// so "1" finds "01".
func (d *DubberNode) Episode(number string) mo.Option[*EpisodeNode] {
	want := episodeKey(number)
	return mo.TupleToOption(lo.Find(d.Episodes, func(e *EpisodeNode) bool {
		if math.IsInf(want, 1) {
			return e.Number == number
		}
		return episodeKey(e.Number) == want
	}))
}

// State reports whether the episode is unresolved, resolved or known empty.
func (e *EpisodeNode) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Sources resolves the episode's embed. Non-empty results are memoised.
// An empty result marks the episode Empty but is not memoised, so a later
// call retries. A result that arrives after ctx is cancelled is dropped.
func (e *EpisodeNode) Sources(ctx context.Context, r Resolver) []media.StreamSource {
	e.mu.Lock()
	if e.state == Resolved {
		cached := slices.Clone(e.sources)
		e.mu.Unlock()
		return cached
	}
	e.mu.Unlock()

	got := r.ExtractSources(ctx, e.EmbedURL)
	if ctx.Err() != nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Resolved {
		return slices.Clone(e.sources)
	}
	if len(got) == 0 {
		e.state = Empty
		return nil
	}
	e.state = Resolved
	e.sources = slices.Clone(got)
	return got
}
