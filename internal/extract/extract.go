// Package extract resolves embed URLs into playable stream sources.
// Each supported embed host has its own Extractor; a Registry dispatches
// a URL to the first extractor that accepts it.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"anicat/internal/logging"
	"anicat/internal/media"
)

// Extractor resolves embed URLs of one host into stream sources.
type Extractor interface {
	// Name identifies the extractor in logs and config.
	Name() string

	// Accepts reports whether rawURL belongs to this extractor's host.
	Accepts(rawURL string) bool

	// Parse resolves rawURL into zero or more sources. Expected failures
	// come back as *SoftFailure; a URL the extractor does not accept
	// yields an error wrapping ErrWrongExtractor.
	Parse(ctx context.Context, rawURL string) ([]media.StreamSource, error)
}

// DomainLeveler is implemented by extractors whose CDN hosts need a
// non-default number of labels for source equality.
type DomainLeveler interface {
	DomainLevels() int
}

// Registry is an ordered list of extractors. The first match wins.
type Registry struct {
	extractors   []Extractor
	domainLevels int
	log          logrus.FieldLogger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDomainLevels sets the default label count used to collapse duplicate sources.
func WithDomainLevels(n int) RegistryOption {
	return func(r *Registry) { r.domainLevels = n }
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l logrus.FieldLogger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates a registry with the given extractors in priority order.
func NewRegistry(extractors []Extractor, opts ...RegistryOption) *Registry {
	r := &Registry{
		extractors:   extractors,
		domainLevels: media.DefaultDomainLevels,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logging.OrStandard(r.log)
	return r
}

// Extractors returns the registered extractors in priority order.
func (r *Registry) Extractors() []Extractor {
	return append([]Extractor(nil), r.extractors...)
}

// FindExtractor returns the first extractor that accepts rawURL.
func (r *Registry) FindExtractor(rawURL string) (Extractor, bool) {
	for _, e := range r.extractors {
		if e.Accepts(rawURL) {
			return e, true
		}
	}
	return nil, false
}

// ExtractSources resolves rawURL with the matching extractor. It never
// fails: an unsupported host, an extractor error or an extractor panic
// all produce an empty list.
func (r *Registry) ExtractSources(ctx context.Context, rawURL string) (sources []media.StreamSource) {
	e, ok := r.FindExtractor(rawURL)
	if !ok {
		r.log.WithField("url", rawURL).Info("no extractor for url")
		return nil
	}

	log := r.log.WithFields(logrus.Fields{"extractor": e.Name(), "url": rawURL})

	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("extractor panicked")
			sources = nil
		}
	}()

	found, err := e.Parse(ctx, rawURL)
	if err != nil {
		if IsSoft(err) {
			log.WithError(err).Debug("extraction gave no sources")
		} else {
			log.WithError(err).Error("extraction failed")
		}
		return nil
	}

	levels := r.domainLevels
	if dl, ok := e.(DomainLeveler); ok {
		levels = dl.DomainLevels()
	}
	return dedupe(found, levels)
}

type sourceKey struct {
	format  media.Format
	quality media.Quality
	domain  string
}

// dedupe drops sources equal to an earlier one under EqualAt(levels).
func dedupe(sources []media.StreamSource, levels int) []media.StreamSource {
	return lo.UniqBy(sources, func(s media.StreamSource) sourceKey {
		return sourceKey{format: s.Format, quality: s.Quality, domain: s.Domain(levels)}
	})
}

// Options configures the default registry.
type Options struct {
	Names        []string // Extractor names in priority order; empty means all
	DomainLevels int
	UserAgent    string
	Logger       logrus.FieldLogger
}

// Names of the built-in extractors, in default priority order.
var Names = []string{kodikName, sibnetName, sovetRomanticaName}

// Default builds a registry of built-in extractors sharing client.
// Kodik uses the process-wide DefaultAPIPath cell.
func Default(client *http.Client, opts Options) (*Registry, error) {
	names := opts.Names
	if len(names) == 0 {
		names = Names
	}

	var extractors []Extractor
	for _, name := range names {
		switch strings.ToLower(name) {
		case kodikName:
			extractors = append(extractors, NewKodik(client,
				WithAPIPath(DefaultAPIPath),
				WithUserAgent(opts.UserAgent),
				WithLogger(opts.Logger),
			))
		case sibnetName:
			extractors = append(extractors, NewSibnet(client, opts.UserAgent, opts.Logger))
		case sovetRomanticaName:
			extractors = append(extractors, NewSovetRomantica(client, opts.UserAgent, opts.Logger))
		default:
			return nil, fmt.Errorf("unknown extractor %q (valid: %s)", name, strings.Join(Names, ", "))
		}
	}

	return NewRegistry(extractors,
		WithDomainLevels(opts.DomainLevels),
		WithRegistryLogger(opts.Logger),
	), nil
}
