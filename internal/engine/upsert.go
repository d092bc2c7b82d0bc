package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/internal/providers"
	"github.com/creatorlens/creatorlens/pkg/logging"
	"github.com/creatorlens/creatorlens/pkg/telemetry"
)

// Store is the storage boundary the engine writes through. Upserts must
// be atomic create-or-update-by-filter operations: the engine never does
// read-modify-write on history or metadata in application memory.
type Store interface {
	UpsertAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	UpsertPost(ctx context.Context, post *models.Post) (*models.Post, error)
	ListTrackedAccounts(ctx context.Context, ownerID string) ([]*models.Account, error)
}

// Engine merges fetched provider payloads into persistent account and
// post history.
type Engine struct {
	store  Store
	logger *zap.Logger
}

// New creates a new engine over a store.
func New(store Store) *Engine {
	return &Engine{
		store:  store,
		logger: logging.WithComponent("engine"),
	}
}

// UpsertResult is the outcome of one platform-data merge.
type UpsertResult struct {
	Account *models.Account `json:"account"`
	PostIDs []int64         `json:"postIds"`
}

// UpsertPlatformData idempotently creates or updates the account
// identified by (platform, payload.AccountID) and each post in media,
// appending one history snapshot to every touched entity.
//
// Two identical calls are deliberately not a no-op: each call records
// its own snapshot even when the values did not change, so an account's
// history doubles as a refresh heartbeat.
func (e *Engine) UpsertPlatformData(ctx context.Context, ownerID string, platform models.Platform, account providers.AccountPayload, media []providers.PostPayload) (*UpsertResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.upsert_platform_data")
	defer span.End()

	if account.AccountID == "" {
		return nil, &ValidationError{Message: "account payload is missing the provider account id"}
	}
	if !platform.IsSupported() {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported platform %q", platform)}
	}

	syncedAt := account.LastSyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}

	stats := account.Stats
	rate := FollowerEngagementRate(stats.Followers, stats.TotalLikes, stats.TotalComments, stats.TotalShares)
	if stats.EngagementRate != nil {
		rate = *stats.EngagementRate
	}

	snapshot := models.AccountSnapshot{
		Date:             syncedAt,
		Followers:        stats.Followers,
		TotalViews:       stats.TotalViews,
		TotalLikes:       stats.TotalLikes,
		TotalComments:    stats.TotalComments,
		TotalShares:      stats.TotalShares,
		TotalImpressions: stats.TotalImpressions,
		EngagementRate:   rate,
	}

	resolved, err := e.store.UpsertAccount(ctx, &models.Account{
		OwnerID:           ownerID,
		Platform:          platform,
		ProviderAccountID: account.AccountID,
		Username:          account.Username,
		DisplayName:       account.DisplayName,
		ProfileURL:        account.ProfileURL,
		Followers:         stats.Followers,
		TotalViews:        stats.TotalViews,
		TotalLikes:        stats.TotalLikes,
		TotalComments:     stats.TotalComments,
		TotalShares:       stats.TotalShares,
		TotalImpressions:  stats.TotalImpressions,
		EngagementRate:    rate,
		History:           models.AccountHistory{snapshot},
		Metadata:          MergeMetadata(nil, account.Metadata, nil),
		LastSyncedAt:      syncedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account %s/%s: %w", platform, account.AccountID, err)
	}

	postIDs := make([]int64, 0, len(media))
	for _, item := range media {
		if item.ExternalID == "" {
			e.logger.Warn("Skipping media item without external id",
				zap.String("platform", platform.String()),
				zap.String("account_id", account.AccountID))
			continue
		}

		post, err := e.upsertPost(ctx, resolved.ID, item, syncedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert post %s: %w", item.ExternalID, err)
		}
		postIDs = append(postIDs, post.ID)
	}

	e.logger.Info("Merged platform data",
		zap.String("platform", platform.String()),
		zap.String("provider_account_id", account.AccountID),
		zap.Int("post_count", len(postIDs)))

	return &UpsertResult{Account: resolved, PostIDs: postIDs}, nil
}

func (e *Engine) upsertPost(ctx context.Context, accountID int64, item providers.PostPayload, syncedAt time.Time) (*models.Post, error) {
	m := item.Metrics
	rate := EngagementRate(m.Views, m.Likes, m.Comments, m.Shares, m.Saves)
	if m.EngagementRate != nil {
		rate = *m.EngagementRate
	}

	snapshot := models.PostSnapshot{
		Date:           syncedAt,
		Views:          m.Views,
		Likes:          m.Likes,
		Comments:       m.Comments,
		Shares:         m.Shares,
		Saves:          m.Saves,
		Impressions:    m.Impressions,
		EngagementRate: rate,
	}

	var published sql.NullTime
	if item.PublishedAt != nil {
		published = sql.NullTime{Time: item.PublishedAt.UTC(), Valid: true}
	}

	return e.store.UpsertPost(ctx, &models.Post{
		AccountID:      accountID,
		ExternalID:     item.ExternalID,
		Title:          item.Title,
		URL:            item.URL,
		ThumbnailURL:   item.ThumbnailURL,
		PublishedAt:    published,
		Views:          m.Views,
		Likes:          m.Likes,
		Comments:       m.Comments,
		Shares:         m.Shares,
		Saves:          m.Saves,
		Impressions:    m.Impressions,
		EngagementRate: rate,
		History:        models.PostHistory{snapshot},
		Metadata:       MergeMetadata(nil, item.Metadata, nil),
		LastSyncedAt:   syncedAt,
	})
}
