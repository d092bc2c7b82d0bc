package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/creatorlens/creatorlens/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AccountRepository provides account-related database operations
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// GetByPlatformID retrieves an account by its (platform, providerAccountID) key
func (r *AccountRepository) GetByPlatformID(ctx context.Context, platform models.Platform, providerAccountID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND provider_account_id = ?", platform, providerAccountID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// Upsert creates or updates an account by its (platform, providerAccountID)
// key in a single atomic statement. The account's History must carry exactly
// the one snapshot for this refresh: on conflict the snapshot is appended to
// the stored history array and the incoming metadata keys are merged over
// the stored metadata, so concurrent refreshes serialize in the database.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.Account) (*models.Account, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform"}, {Name: "provider_account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"owner_id":          account.OwnerID,
			"username":          account.Username,
			"display_name":      account.DisplayName,
			"profile_url":       account.ProfileURL,
			"followers":         account.Followers,
			"total_views":       account.TotalViews,
			"total_likes":       account.TotalLikes,
			"total_comments":    account.TotalComments,
			"total_shares":      account.TotalShares,
			"total_impressions": account.TotalImpressions,
			"engagement_rate":   account.EngagementRate,
			"history":           gorm.Expr("creator_accounts.history || excluded.history"),
			"metadata":          gorm.Expr("creator_accounts.metadata || excluded.metadata"),
			"last_synced_at":    account.LastSyncedAt,
			"updated_at":        gorm.Expr("now()"),
		}),
	}).Create(account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	// Re-read the resolved row; Create fills the ID only on insert.
	return r.GetByPlatformID(ctx, account.Platform, account.ProviderAccountID)
}

// ListTracked returns tracked accounts ordered oldest-synced first,
// optionally scoped to one owner.
func (r *AccountRepository) ListTracked(ctx context.Context, ownerID string) ([]*models.Account, error) {
	q := r.db.WithContext(ctx).Order("last_synced_at ASC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var accounts []*models.Account
	if err := q.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Delete removes an account and all posts it owns.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Account{}, id).Error
	})
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByExternalID retrieves a post by its (accountID, externalID) key
func (r *PostRepository) GetByExternalID(ctx context.Context, accountID int64, externalID string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Upsert creates or updates a post by its (accountID, externalID) key.
// Same append/merge semantics as AccountRepository.Upsert. published_at is
// never updated on conflict: a post's publish date is immutable once set.
func (r *PostRepository) Upsert(ctx context.Context, post *models.Post) (*models.Post, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "external_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"title":           post.Title,
			"url":             post.URL,
			"thumbnail_url":   post.ThumbnailURL,
			"views":           post.Views,
			"likes":           post.Likes,
			"comments":        post.Comments,
			"shares":          post.Shares,
			"saves":           post.Saves,
			"impressions":     post.Impressions,
			"engagement_rate": post.EngagementRate,
			"history":         gorm.Expr("creator_posts.history || excluded.history"),
			"metadata":        gorm.Expr("creator_posts.metadata || excluded.metadata"),
			"last_synced_at":  post.LastSyncedAt,
			"updated_at":      gorm.Expr("now()"),
		}),
	}).Create(post).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert post: %w", err)
	}

	return r.GetByExternalID(ctx, post.AccountID, post.ExternalID)
}

// ListByAccount returns all posts owned by one account.
func (r *PostRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("published_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByAccounts returns all posts owned by any of the given accounts.
func (r *PostRepository) ListByAccounts(ctx context.Context, accountIDs []int64) ([]*models.Post, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("account_id IN ?", accountIDs).
		Order("published_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Store bundles the repositories behind the engine's storage interface.
type Store struct {
	Accounts *AccountRepository
	Posts    *PostRepository
}

// NewStore creates a Store over one database connection.
func NewStore(database *DB) *Store {
	repo := NewRepository(database.DB)
	return &Store{
		Accounts: NewAccountRepository(repo),
		Posts:    NewPostRepository(repo),
	}
}

// UpsertAccount implements engine storage.
func (s *Store) UpsertAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	return s.Accounts.Upsert(ctx, account)
}

// UpsertPost implements engine storage.
func (s *Store) UpsertPost(ctx context.Context, post *models.Post) (*models.Post, error) {
	return s.Posts.Upsert(ctx, post)
}

// ListTrackedAccounts implements engine storage.
func (s *Store) ListTrackedAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	return s.Accounts.ListTracked(ctx, ownerID)
}
