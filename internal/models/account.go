package models

import (
	"time"
)

// Account represents one tracked creator profile on one platform.
// Uniqueness is (platform, provider_account_id); OwnerID scopes the
// account to an owning user when multi-user tracking is enabled.
type Account struct {
	ID                int64    `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	OwnerID           string   `gorm:"type:varchar(64);index;column:owner_id" json:"ownerId,omitempty"`
	Platform          Platform `gorm:"type:varchar(16);not null;uniqueIndex:creator_accounts_ux1;column:platform" json:"platform"`
	ProviderAccountID string   `gorm:"type:varchar(128);not null;uniqueIndex:creator_accounts_ux1;column:provider_account_id" json:"providerAccountId"`

	// Display fields
	Username    string `gorm:"type:varchar(128);not null;default:'';column:username" json:"username"`
	DisplayName string `gorm:"type:varchar(256);not null;default:'';column:display_name" json:"displayName"`
	ProfileURL  string `gorm:"type:varchar(1024);not null;default:'';column:profile_url" json:"profileUrl"`

	// Current stats snapshot, derived on every refresh
	Followers        int64   `gorm:"not null;default:0;column:followers" json:"followers"`
	TotalViews       int64   `gorm:"not null;default:0;column:total_views" json:"totalViews"`
	TotalLikes       int64   `gorm:"not null;default:0;column:total_likes" json:"totalLikes"`
	TotalComments    int64   `gorm:"not null;default:0;column:total_comments" json:"totalComments"`
	TotalShares      int64   `gorm:"not null;default:0;column:total_shares" json:"totalShares"`
	TotalImpressions int64   `gorm:"not null;default:0;column:total_impressions" json:"totalImpressions"`
	EngagementRate   float64 `gorm:"not null;default:0;column:engagement_rate" json:"engagementRate"`

	// Append-only refresh history and open provider metadata
	History  AccountHistory `gorm:"type:jsonb;not null;default:'[]';column:history" json:"history"`
	Metadata Metadata       `gorm:"type:jsonb;not null;default:'{}';column:metadata" json:"metadata"`

	LastSyncedAt time.Time `gorm:"not null;index;column:last_synced_at" json:"lastSyncedAt"`
	CreatedAt    time.Time `gorm:"not null;column:created_at" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "creator_accounts"
}

// AccountStats is the derived per-refresh stat block carried by provider
// payloads and folded by the overview aggregator.
type AccountStats struct {
	Followers        int64   `json:"followers"`
	TotalViews       int64   `json:"totalViews"`
	TotalLikes       int64   `json:"totalLikes"`
	TotalComments    int64   `json:"totalComments"`
	TotalShares      int64   `json:"totalShares"`
	TotalImpressions int64   `json:"totalImpressions"`
	EngagementRate   float64 `json:"engagementRate"`
}

// Stats returns the account's current stat block.
func (a *Account) Stats() AccountStats {
	return AccountStats{
		Followers:        a.Followers,
		TotalViews:       a.TotalViews,
		TotalLikes:       a.TotalLikes,
		TotalComments:    a.TotalComments,
		TotalShares:      a.TotalShares,
		TotalImpressions: a.TotalImpressions,
		EngagementRate:   a.EngagementRate,
	}
}

// AccountSnapshot is one immutable history entry, appended per refresh.
type AccountSnapshot struct {
	Date             time.Time `json:"date"`
	Followers        int64     `json:"followers"`
	TotalViews       int64     `json:"totalViews"`
	TotalLikes       int64     `json:"totalLikes"`
	TotalComments    int64     `json:"totalComments"`
	TotalShares      int64     `json:"totalShares"`
	TotalImpressions int64     `json:"totalImpressions"`
	EngagementRate   float64   `json:"engagementRate"`
}
