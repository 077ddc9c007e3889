package domaingate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/tracing"
)

type domainGate struct {
	domainRepository repository.DomainRepository
	cfg              *config.DomainGateConfig
	log              logger.Logger

	mu          sync.RWMutex
	allowed     map[string]struct{}
	blocked     map[string]struct{}
	refreshedAt time.Time
}

func NewDomainGate(repo repository.DomainRepository, cfg *config.DomainGateConfig, log logger.Logger) interfaces.DomainGate {
	g := &domainGate{
		domainRepository: repo,
		cfg:              cfg,
		log:              log,
		allowed:          make(map[string]struct{}),
		blocked:          make(map[string]struct{}),
	}
	for _, d := range cfg.BlockedDomains {
		g.blocked[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return g
}

// IsAllowed reports whether the domain may receive an auto-reply. The cached
// allow-list is refreshed wholesale when stale. When persistence is down the
// gate falls back to the static default allow-list from configuration, an
// availability-over-strictness choice; set DOMAIN_GATE_FAIL_CLOSED to deny
// everything on persistence failure instead.
func (g *domainGate) IsAllowed(ctx context.Context, domain string) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DomainGate.IsAllowed")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("domain", domain)

	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}

	if g.isBlocked(domain) {
		span.LogFields(tracingLog.Bool("response.allowed", false))
		return false
	}

	g.mu.RLock()
	_, hit := g.allowed[domain]
	stale := time.Since(g.refreshedAt) > g.cfg.CacheTTL
	g.mu.RUnlock()

	if hit && !stale {
		span.LogFields(tracingLog.Bool("response.allowed", true))
		return true
	}

	if err := g.Refresh(ctx); err != nil {
		tracing.TraceErr(span, err)
		if g.cfg.FailClosed {
			g.log.Warnf("domain gate refresh failed, failing closed for %s: %v", domain, err)
			return false
		}
		g.log.Warnf("domain gate refresh failed, falling back to default allow-list: %v", err)
		allowed := g.inDefaults(domain)
		span.LogFields(tracingLog.Bool("response.allowed", allowed), tracingLog.Bool("fallback", true))
		return allowed
	}

	g.mu.RLock()
	_, allowed := g.allowed[domain]
	g.mu.RUnlock()

	span.LogFields(tracingLog.Bool("response.allowed", allowed))
	return allowed
}

// Refresh replaces the cached allow-list with the current persisted state.
func (g *domainGate) Refresh(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DomainGate.Refresh")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	policies, err := g.domainRepository.ListAllowed(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	allowed := make(map[string]struct{}, len(policies))
	for _, p := range policies {
		if p.AutoReplyEnabled {
			allowed[strings.ToLower(p.Domain)] = struct{}{}
		}
	}

	// An empty table means nothing was provisioned yet; the configured
	// defaults keep a fresh install functional.
	if len(policies) == 0 {
		for _, d := range g.cfg.DefaultAllowedDomains {
			allowed[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
		}
	}

	g.mu.Lock()
	g.allowed = allowed
	g.refreshedAt = time.Now()
	g.mu.Unlock()

	span.LogFields(tracingLog.Int("allowed.count", len(allowed)))
	return nil
}

// Reset drops the cache so the next check fetches fresh state.
func (g *domainGate) Reset() {
	g.mu.Lock()
	g.allowed = make(map[string]struct{})
	g.refreshedAt = time.Time{}
	g.mu.Unlock()
}

func (g *domainGate) isBlocked(domain string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, blocked := g.blocked[domain]
	return blocked
}

func (g *domainGate) inDefaults(domain string) bool {
	for _, d := range g.cfg.DefaultAllowedDomains {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return true
		}
	}
	return false
}
