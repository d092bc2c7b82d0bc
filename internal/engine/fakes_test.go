package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/internal/providers"
	"github.com/creatorlens/creatorlens/pkg/config"
)

// fakeStore emulates the storage contract in memory: upsert-by-filter
// with history append and shallow metadata merge.
type fakeStore struct {
	nextAccountID int64
	nextPostID    int64
	accounts      map[string]*models.Account
	posts         map[string]*models.Post

	listErr    error
	accountErr error
	postErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[string]*models.Account),
		posts:    make(map[string]*models.Post),
	}
}

func accountKey(platform models.Platform, providerAccountID string) string {
	return string(platform) + "|" + providerAccountID
}

func (s *fakeStore) UpsertAccount(ctx context.Context, in *models.Account) (*models.Account, error) {
	if s.accountErr != nil {
		return nil, s.accountErr
	}

	key := accountKey(in.Platform, in.ProviderAccountID)
	if existing, ok := s.accounts[key]; ok {
		existing.OwnerID = in.OwnerID
		existing.Username = in.Username
		existing.DisplayName = in.DisplayName
		existing.ProfileURL = in.ProfileURL
		existing.Followers = in.Followers
		existing.TotalViews = in.TotalViews
		existing.TotalLikes = in.TotalLikes
		existing.TotalComments = in.TotalComments
		existing.TotalShares = in.TotalShares
		existing.TotalImpressions = in.TotalImpressions
		existing.EngagementRate = in.EngagementRate
		existing.History = append(existing.History, in.History...)
		existing.Metadata = existing.Metadata.Merge(in.Metadata)
		existing.LastSyncedAt = in.LastSyncedAt
		return existing, nil
	}

	s.nextAccountID++
	created := *in
	created.ID = s.nextAccountID
	s.accounts[key] = &created
	return &created, nil
}

func (s *fakeStore) UpsertPost(ctx context.Context, in *models.Post) (*models.Post, error) {
	if s.postErr != nil {
		return nil, s.postErr
	}

	key := fmt.Sprintf("%d|%s", in.AccountID, in.ExternalID)
	if existing, ok := s.posts[key]; ok {
		existing.Title = in.Title
		existing.URL = in.URL
		existing.ThumbnailURL = in.ThumbnailURL
		existing.Views = in.Views
		existing.Likes = in.Likes
		existing.Comments = in.Comments
		existing.Shares = in.Shares
		existing.Saves = in.Saves
		existing.Impressions = in.Impressions
		existing.EngagementRate = in.EngagementRate
		existing.History = append(existing.History, in.History...)
		existing.Metadata = existing.Metadata.Merge(in.Metadata)
		existing.LastSyncedAt = in.LastSyncedAt
		// published_at stays as first recorded
		return existing, nil
	}

	s.nextPostID++
	created := *in
	created.ID = s.nextPostID
	s.posts[key] = &created
	return &created, nil
}

func (s *fakeStore) ListTrackedAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []*models.Account
	for _, a := range s.accounts {
		if ownerID == "" || a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) getAccount(platform models.Platform, providerAccountID string) *models.Account {
	return s.accounts[accountKey(platform, providerAccountID)]
}

// fakeRegistry maps platforms to scripted fetchers.
type fakeRegistry map[models.Platform]providers.Fetcher

func (r fakeRegistry) Get(p models.Platform) (providers.Fetcher, bool) {
	f, ok := r[p]
	return f, ok
}

type fetchStep struct {
	payload *providers.Payload
	err     error
}

// scriptedFetcher replays a fixed sequence of fetch outcomes and records
// the options of every call.
type scriptedFetcher struct {
	platform models.Platform
	steps    []fetchStep
	calls    []providers.FetchOptions
}

func (f *scriptedFetcher) Platform() models.Platform {
	return f.platform
}

func (f *scriptedFetcher) Fetch(ctx context.Context, opts providers.FetchOptions) (*providers.Payload, error) {
	f.calls = append(f.calls, opts)
	if len(f.steps) == 0 {
		return nil, errors.New("no scripted response left")
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step.payload, step.err
}

func testProvidersConfig() *config.ProvidersConfig {
	return &config.ProvidersConfig{
		Instagram:    config.ProviderConfig{MinSpacing: 3 * time.Second, RateLimitBackoff: 30 * time.Second},
		TikTok:       config.ProviderConfig{MinSpacing: 2 * time.Second, RateLimitBackoff: 20 * time.Second},
		YouTube:      config.ProviderConfig{MinSpacing: time.Second, RateLimitBackoff: 10 * time.Second},
		FetchTimeout: 30 * time.Second,
	}
}

func testPayload(accountID string, postCount int) *providers.Payload {
	payload := &providers.Payload{
		Account: providers.AccountPayload{
			AccountID: accountID,
			Username:  "creator",
			Stats:     providers.AccountStatsPayload{Followers: 100},
		},
	}
	for i := 0; i < postCount; i++ {
		published := time.Date(2024, 1, 1+i, 12, 0, 0, 0, time.UTC)
		payload.Media = append(payload.Media, providers.PostPayload{
			ExternalID:  fmt.Sprintf("post-%d", i),
			PublishedAt: &published,
			Metrics:     providers.PostMetricsPayload{Views: int64(100 * (i + 1)), Likes: 10},
		})
	}
	return payload
}

// newTestRefresher builds a refresher with deterministic time handling:
// now is frozen and sleeps are recorded instead of executed.
func newTestRefresher(store *fakeStore, registry fakeRegistry, sleeps *[]time.Duration) *Refresher {
	r := NewRefresher(store, registry, testProvidersConfig(), New(store))
	r.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	r.sleep = func(ctx context.Context, d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}
	return r
}
