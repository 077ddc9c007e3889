package domaingate

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/models"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeDomainRepo struct {
	policies []models.DomainPolicy
	err      error
	calls    int
}

func (f *fakeDomainRepo) Upsert(_ context.Context, policy *models.DomainPolicy) (*models.DomainPolicy, error) {
	return policy, nil
}

func (f *fakeDomainRepo) GetByDomain(_ context.Context, domain string) (*models.DomainPolicy, error) {
	for i := range f.policies {
		if f.policies[i].Domain == domain {
			return &f.policies[i], nil
		}
	}
	return nil, nil
}

func (f *fakeDomainRepo) List(_ context.Context, limit, offset int) ([]models.DomainPolicy, error) {
	return f.policies, f.err
}

func (f *fakeDomainRepo) ListAllowed(_ context.Context) ([]models.DomainPolicy, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var allowed []models.DomainPolicy
	for _, p := range f.policies {
		if p.IsAllowed && !p.IsBlocked {
			allowed = append(allowed, p)
		}
	}
	return allowed, nil
}

func (f *fakeDomainRepo) Delete(_ context.Context, domain string) error { return nil }

func testConfig() *config.DomainGateConfig {
	return &config.DomainGateConfig{
		DefaultAllowedDomains: []string{"gmail.com", "outlook.com"},
		BlockedDomains:        []string{"spam.example"},
		CacheTTL:              time.Minute,
	}
}

func TestIsAllowed_FromPersistence(t *testing.T) {
	repo := &fakeDomainRepo{policies: []models.DomainPolicy{
		{Domain: "acme.com", IsAllowed: true, AutoReplyEnabled: true},
		{Domain: "muted.com", IsAllowed: true, AutoReplyEnabled: false},
	}}
	g := NewDomainGate(repo, testConfig(), getLogger())
	ctx := context.Background()

	assert.True(t, g.IsAllowed(ctx, "acme.com"))
	assert.True(t, g.IsAllowed(ctx, "ACME.COM"))
	assert.False(t, g.IsAllowed(ctx, "muted.com"))
	assert.False(t, g.IsAllowed(ctx, "evil.org"))
	assert.False(t, g.IsAllowed(ctx, ""))
}

func TestIsAllowed_CacheHitSkipsRepo(t *testing.T) {
	repo := &fakeDomainRepo{policies: []models.DomainPolicy{
		{Domain: "acme.com", IsAllowed: true, AutoReplyEnabled: true},
	}}
	g := NewDomainGate(repo, testConfig(), getLogger())
	ctx := context.Background()

	assert.True(t, g.IsAllowed(ctx, "acme.com"))
	callsAfterFirst := repo.calls
	assert.True(t, g.IsAllowed(ctx, "acme.com"))
	assert.Equal(t, callsAfterFirst, repo.calls)
}

func TestIsAllowed_BlockedDomainAlwaysDenied(t *testing.T) {
	repo := &fakeDomainRepo{policies: []models.DomainPolicy{
		{Domain: "spam.example", IsAllowed: true, AutoReplyEnabled: true},
	}}
	g := NewDomainGate(repo, testConfig(), getLogger())

	assert.False(t, g.IsAllowed(context.Background(), "spam.example"))
}

func TestIsAllowed_FailOpenFallsBackToDefaults(t *testing.T) {
	repo := &fakeDomainRepo{err: errors.New("connection refused")}
	g := NewDomainGate(repo, testConfig(), getLogger())
	ctx := context.Background()

	assert.True(t, g.IsAllowed(ctx, "gmail.com"))
	assert.False(t, g.IsAllowed(ctx, "acme.com"))
}

func TestIsAllowed_FailClosedDeniesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.FailClosed = true
	repo := &fakeDomainRepo{err: errors.New("connection refused")}
	g := NewDomainGate(repo, cfg, getLogger())

	assert.False(t, g.IsAllowed(context.Background(), "gmail.com"))
}

func TestRefresh_EmptyTableSeedsDefaults(t *testing.T) {
	repo := &fakeDomainRepo{}
	g := NewDomainGate(repo, testConfig(), getLogger())
	ctx := context.Background()

	assert.NoError(t, g.Refresh(ctx))
	assert.True(t, g.IsAllowed(ctx, "gmail.com"))
	assert.True(t, g.IsAllowed(ctx, "outlook.com"))
	assert.False(t, g.IsAllowed(ctx, "acme.com"))
}

func TestReset_ForcesRefetch(t *testing.T) {
	repo := &fakeDomainRepo{policies: []models.DomainPolicy{
		{Domain: "acme.com", IsAllowed: true, AutoReplyEnabled: true},
	}}
	g := NewDomainGate(repo, testConfig(), getLogger())
	ctx := context.Background()

	assert.True(t, g.IsAllowed(ctx, "acme.com"))

	repo.policies = nil
	g.Reset()
	// After reset the cache rebuilds from the now-empty table, which seeds
	// defaults instead.
	assert.False(t, g.IsAllowed(ctx, "acme.com"))
	assert.True(t, g.IsAllowed(ctx, "gmail.com"))
}
