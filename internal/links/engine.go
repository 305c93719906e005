package links

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type config struct {
	logger     *zap.Logger
	statusCode StatusCodeResolver
	autoLinks  bool
	cacheSize  int
}

// Option configures Resolve and Inject.
type Option func(*config)

// WithLogger sets the logger warnings and progress are written to.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStatusCodeResolver replaces PrimaryStatusCode as the rule that selects
// which response's x-links are read.
func WithStatusCodeResolver(fn StatusCodeResolver) Option {
	return func(c *config) {
		if fn != nil {
			c.statusCode = fn
		}
	}
}

// WithAutoLinks toggles links derived from x-responseValueType. On by default.
func WithAutoLinks(enabled bool) Option { return func(c *config) { c.autoLinks = enabled } }

// WithCacheSize bounds the per-document reference cache.
func WithCacheSize(n int) Option { return func(c *config) { c.cacheSize = n } }

func newConfig(opts []Option) *config {
	c := &config{
		logger:     zap.NewNop(),
		statusCode: PrimaryStatusCode,
		autoLinks:  true,
		cacheSize:  defaultCacheSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Resolve computes the links between docs without modifying them. Keys in
// the result form a single namespace.
func Resolve(ctx context.Context, docs []*openapi3.T, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)
	p, err := run(ctx, docs, cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{Links: emitStandalone(p.candidates), Warnings: p.warnings}
	cfg.logger.Debug("links resolved", zap.Int("documents", len(p.reg.Labels())), zap.Int("links", len(res.Links)), zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// Inject computes the links between docs and returns copies of the documents
// with each link added to its origin response. The inputs are never
// modified; documents that receive no link are returned as given. Links
// already present in a response are not added again.
func Inject(ctx context.Context, docs []*openapi3.T, opts ...Option) ([]*openapi3.T, *Result, error) {
	cfg := newConfig(opts)
	p, err := run(ctx, docs, cfg)
	if err != nil {
		return nil, nil, err
	}
	in := newInjector(p.reg)
	injected, err := in.inject(p.candidates)
	if err != nil {
		return nil, nil, err
	}
	res := &Result{Links: injected, Warnings: p.warnings}
	cfg.logger.Debug("links injected", zap.Int("documents", len(in.docs)), zap.Int("links", len(injected)), zap.Int("warnings", len(res.Warnings)))
	return in.documents(docs), res, nil
}

type pipeline struct {
	reg        *Registry
	index      *ValueTypeIndex
	candidates []*candidate
	warnings   warnings
}

// run registers docs, scans every document concurrently, then matches and
// validates sequentially. Scan results are merged in registry order so the
// outcome does not depend on scheduling.
func run(ctx context.Context, docs []*openapi3.T, cfg *config) (*pipeline, error) {
	reg, regWarnings := NewRegistry(docs, cfg.cacheSize)
	p := &pipeline{reg: reg, index: newValueTypeIndex()}
	p.merge(cfg.logger, regWarnings)

	labels := reg.Labels()
	scans := make([]*documentScan, len(labels))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, label := range labels {
		i, label := i, label
		eg.Go(func() error {
			scan, err := scanDocument(egCtx, reg, label, cfg)
			if err != nil {
				return err
			}
			scans[i] = scan
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var templates []Template
	var sources []autoSource
	for _, scan := range scans {
		for _, tp := range scan.parameters {
			p.index.add(tp.tag, tp.ref)
		}
		templates = append(templates, scan.templates...)
		sources = append(sources, scan.sources...)
		p.merge(cfg.logger, scan.warnings)
	}

	m := newMatcher(reg, p.index)
	for _, t := range templates {
		if err := m.matchTemplate(t); err != nil {
			return nil, err
		}
	}
	for _, s := range sources {
		m.matchSource(s)
	}

	var pruneWarnings warnings
	kept, err := prune(reg, m.order, &pruneWarnings)
	if err != nil {
		return nil, err
	}
	p.merge(cfg.logger, pruneWarnings)
	p.candidates = kept
	return p, nil
}

func (p *pipeline) merge(logger *zap.Logger, ws []Warning) {
	warnings(ws).log(logger)
	p.warnings = append(p.warnings, ws...)
}
