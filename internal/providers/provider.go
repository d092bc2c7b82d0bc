package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/pkg/config"
)

// FetchOptions selects the account to fetch. AccountID is the
// provider-assigned id; Username is the human-readable handle. At least
// one must be set. When only Username is set, the fetcher resolves the
// account by handle (used to recover from provider-side id rotation).
type FetchOptions struct {
	AccountID string
	Username  string
}

// AccountStatsPayload carries the raw account-level counters from a
// provider. EngagementRate is nil when the provider does not supply one;
// the engine derives it in that case.
type AccountStatsPayload struct {
	Followers        int64    `json:"followers"`
	TotalViews       int64    `json:"totalViews"`
	TotalLikes       int64    `json:"totalLikes"`
	TotalComments    int64    `json:"totalComments"`
	TotalShares      int64    `json:"totalShares"`
	TotalImpressions int64    `json:"totalImpressions"`
	EngagementRate   *float64 `json:"engagementRate,omitempty"`
}

// AccountPayload is one fetched account profile.
type AccountPayload struct {
	AccountID    string              `json:"accountId"`
	Username     string              `json:"username"`
	DisplayName  string              `json:"displayName"`
	ProfileURL   string              `json:"profileUrl"`
	Stats        AccountStatsPayload `json:"stats"`
	Metadata     models.Metadata     `json:"metadata,omitempty"`
	LastSyncedAt time.Time           `json:"lastSyncedAt,omitempty"`
}

// PostMetricsPayload carries the raw per-post counters from a provider.
type PostMetricsPayload struct {
	Views          int64    `json:"views"`
	Likes          int64    `json:"likes"`
	Comments       int64    `json:"comments"`
	Shares         int64    `json:"shares"`
	Saves          int64    `json:"saves"`
	Impressions    int64    `json:"impressions"`
	EngagementRate *float64 `json:"engagementRate,omitempty"`
}

// PostPayload is one fetched content item.
type PostPayload struct {
	ExternalID   string             `json:"externalId"`
	Title        string             `json:"title"`
	URL          string             `json:"url"`
	ThumbnailURL string             `json:"thumbnailUrl"`
	PublishedAt  *time.Time         `json:"publishedAt,omitempty"`
	Metrics      PostMetricsPayload `json:"metrics"`
	Metadata     models.Metadata    `json:"metadata,omitempty"`
}

// Payload is one complete fetch result.
type Payload struct {
	Account AccountPayload `json:"account"`
	Media   []PostPayload  `json:"media"`
}

// Fetcher fetches one platform's account payload and media list.
type Fetcher interface {
	Platform() models.Platform
	Fetch(ctx context.Context, opts FetchOptions) (*Payload, error)
}

// APIError is a provider HTTP failure carrying the upstream status code
// so the refresh orchestrator can classify it.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error (status %d): %s", e.StatusCode, e.Message)
}

// Registry maps platforms to their fetchers.
type Registry struct {
	fetchers map[models.Platform]Fetcher
}

// NewRegistry builds the fetcher set for all supported platforms.
func NewRegistry(cfg *config.ProvidersConfig) *Registry {
	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	r := &Registry{fetchers: make(map[models.Platform]Fetcher)}
	r.Register(NewInstagramFetcher(&cfg.Instagram, httpClient))
	r.Register(NewTikTokFetcher(&cfg.TikTok, httpClient))
	r.Register(NewYouTubeFetcher(&cfg.YouTube, httpClient))
	return r
}

// Register adds a fetcher to the registry.
func (r *Registry) Register(f Fetcher) {
	r.fetchers[f.Platform()] = f
}

// Get returns the fetcher for a platform, or false when unsupported.
func (r *Registry) Get(platform models.Platform) (Fetcher, bool) {
	f, ok := r.fetchers[platform]
	return f, ok
}
