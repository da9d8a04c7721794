package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/cache"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/events"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/provider"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository/memory"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	channel    domain.Channel
	configured bool
	fail       bool

	mu   sync.Mutex
	sent []provider.SendOptions
	seq  atomic.Int32
}

var _ provider.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) Channel() domain.Channel { return p.channel }

func (p *fakeProvider) IsConfigured() bool { return p.configured }

func (p *fakeProvider) Send(_ context.Context, opts provider.SendOptions) provider.SendResult {
	p.mu.Lock()
	p.sent = append(p.sent, opts)
	p.mu.Unlock()

	if p.fail {
		return provider.SendResult{Success: false, Error: fmt.Sprintf("%s gateway rejected %s", p.channel, opts.To)}
	}
	return provider.SendResult{Success: true, MessageID: fmt.Sprintf("%s-%d", p.channel, p.seq.Add(1))}
}

func (p *fakeProvider) SentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DeliveryEvent
}

var _ events.Publisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.DeliveryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// failingLedger wraps a ledger and fails every status update.
type failingLedger struct {
	repository.DeliveryRepository
}

func (l *failingLedger) Resolve(context.Context, string, domain.AttemptResolution) error {
	return fmt.Errorf("resolve attempt: %w: %w", types.ErrStoreFailure, errors.New("connection reset"))
}

type fixture struct {
	store     *memory.Store
	cache     *cache.MemoryCache
	loader    *cache.Loader
	providers map[domain.Channel]*fakeProvider
	publisher *recordingPublisher
	resolver  RecipientResolver
	dispatch  DispatchService
	scheduler SchedulerService
	content   ContentService
	members   MembershipService
	stats     StatsService
	progress  ProgressService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	ledger       func(repository.DeliveryRepository) repository.DeliveryRepository
	unconfigured []domain.Channel
	failing      []domain.Channel
}

func withLedger(wrap func(repository.DeliveryRepository) repository.DeliveryRepository) fixtureOption {
	return func(c *fixtureConfig) { c.ledger = wrap }
}

func withUnconfigured(channels ...domain.Channel) fixtureOption {
	return func(c *fixtureConfig) { c.unconfigured = channels }
}

func withFailing(channels ...domain.Channel) fixtureOption {
	return func(c *fixtureConfig) { c.failing = channels }
}

func contains(list []domain.Channel, c domain.Channel) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.New()
	var ledger repository.DeliveryRepository = store
	if cfg.ledger != nil {
		ledger = cfg.ledger(store)
	}

	mc := cache.NewMemoryCache(30 * time.Second)
	loader := cache.NewLoader(mc, 0)

	fakes := make(map[domain.Channel]*fakeProvider, len(domain.Channels))
	list := make([]provider.Provider, 0, len(domain.Channels))
	for _, c := range domain.Channels {
		p := &fakeProvider{
			channel:    c,
			configured: !contains(cfg.unconfigured, c),
			fail:       contains(cfg.failing, c),
		}
		fakes[c] = p
		list = append(list, p)
	}

	publisher := &recordingPublisher{}
	resolver := NewRecipientResolver(store)
	dispatch := NewDispatchService(store, ledger, resolver, provider.NewRegistry(list...), loader, publisher,
		DispatchOptions{Concurrency: 4, ProviderTimeout: time.Second})
	scheduler := NewSchedulerService(store, ledger, dispatch, SchedulerOptions{BatchSize: 10})

	return &fixture{
		store:     store,
		cache:     mc,
		loader:    loader,
		providers: fakes,
		publisher: publisher,
		resolver:  resolver,
		dispatch:  dispatch,
		scheduler: scheduler,
		content:   NewContentService(store, store, ledger, dispatch, scheduler, loader),
		members:   NewMembershipService(store, loader),
		stats:     NewStatsService(store, store, loader),
		progress:  NewProgressService(ledger),
	}
}

type member struct {
	id    string
	name  string
	role  domain.Role
	prefs map[domain.Channel]string
}

func (f *fixture) seedGroup(t *testing.T, groupID string, members ...member) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.store.CreateGroup(ctx, &domain.Group{ID: groupID, Name: "Group " + groupID, Slug: groupID}))

	for _, m := range members {
		role := m.role
		if role == "" {
			role = domain.RoleMember
		}
		require.NoError(t, f.store.CreateUser(ctx, &domain.User{ID: m.id, Name: m.name}))
		require.NoError(t, f.store.SaveMembership(ctx, &domain.Membership{UserID: m.id, FamilyGroupID: groupID, Role: role}))
		for c, dest := range m.prefs {
			d := dest
			require.NoError(t, f.store.UpsertPreference(ctx, &domain.Preference{UserID: m.id, Channel: c, Enabled: true, Destination: &d}))
		}
	}
}

func (f *fixture) addAnnouncement(t *testing.T, groupID, id string, scheduledAt *time.Time) {
	t.Helper()
	require.NoError(t, f.store.CreateAnnouncement(context.Background(), &domain.Announcement{
		ID:            id,
		FamilyGroupID: groupID,
		Title:         "Title " + id,
		Body:          "Body " + id,
		CreatedByID:   "u-admin",
		ScheduledAt:   scheduledAt,
	}))
}

func ptr[T any](v T) *T {
	return &v
}

func countByStatus(attempts []domain.DeliveryAttempt) map[domain.DeliveryStatus]int {
	out := make(map[domain.DeliveryStatus]int)
	for _, a := range attempts {
		out[a.Status]++
	}
	return out
}
