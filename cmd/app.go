package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"anicat/internal/catalog"
	"anicat/internal/config"
	"anicat/internal/extract"
	"anicat/internal/httputil"
	"anicat/internal/provider"
	"anicat/internal/titlecache"
)

// app holds the long-lived services shared by every command.
type app struct {
	provider provider.Provider
	titles   *titlecache.Cache
	registry *extract.Registry
	log      logrus.FieldLogger
}

func newApp(cfg *config.Config, log logrus.FieldLogger) (*app, error) {
	client := httputil.NewClient()

	p := provider.NewYani(cfg.APIBase, cfg.Lang, client, log)

	registry, err := extract.Default(client, extract.Options{
		Names:        cfg.Extractors,
		DomainLevels: cfg.DomainLevels,
		UserAgent:    cfg.UserAgent,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	titles := titlecache.New(p,
		titlecache.WithCapacity(cfg.CacheCapacity),
		titlecache.WithSweepInterval(cfg.CacheSweep),
		titlecache.WithLogger(log),
	)

	return &app{provider: p, titles: titles, registry: registry, log: log}, nil
}

func (a *app) Start() { a.titles.Start() }

func (a *app) Stop() {
	a.titles.Stop()
	st := a.titles.Stats()
	a.log.WithFields(logrus.Fields{"hits": st.Hits, "misses": st.Misses, "evictions": st.Evictions}).Debug("title cache closed")
}

// catalog fetches a title through the cache and groups its embeds.
func (a *app) catalog(ctx context.Context, id string) (*catalog.Catalog, error) {
	title, err := a.titles.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c := catalog.Build(title, a.registry)
	a.log.WithFields(logrus.Fields{
		"title":   id,
		"players": len(c.Players),
		"embeds":  c.EmbedCount(),
	}).Debug("built catalog")
	return c, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
