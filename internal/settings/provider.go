package settings

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"classroom-access-backend/internal/model"
)

const currentTermKey = "current_term"

// TermSource reads the current term from persistent storage.
type TermSource interface {
	CurrentTerm(ctx context.Context) (model.Term, error)
}

// Provider exposes the current academic term, caching it for a short TTL.
type Provider struct {
	source TermSource
	cache  *cache.Cache
	ttl    time.Duration
}

// NewProvider creates a provider. A non-positive ttl disables caching.
func NewProvider(source TermSource, ttl time.Duration) *Provider {
	return &Provider{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
	}
}

// CurrentTerm returns the term all schedule and enrollment lookups are scoped to.
func (p *Provider) CurrentTerm(ctx context.Context) (model.Term, error) {
	if p.ttl > 0 {
		if v, found := p.cache.Get(currentTermKey); found {
			return v.(model.Term), nil
		}
	}

	term, err := p.source.CurrentTerm(ctx)
	if err != nil {
		return model.Term{}, err
	}
	if p.ttl > 0 {
		p.cache.Set(currentTermKey, term, p.ttl)
	}
	return term, nil
}

// Invalidate drops the cached term so the next call reads storage.
func (p *Provider) Invalidate() {
	p.cache.Delete(currentTermKey)
}
