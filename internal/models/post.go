package models

import (
	"database/sql"
	"time"
)

// Post represents one piece of content belonging to exactly one Account.
// Uniqueness is (account_id, external_id). Posts are never auto-deleted:
// a provider omitting a post from one fetch is not a deletion signal.
type Post struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	AccountID  int64  `gorm:"not null;uniqueIndex:creator_posts_ux1;index;column:account_id" json:"accountId"`
	ExternalID string `gorm:"type:varchar(128);not null;uniqueIndex:creator_posts_ux1;column:external_id" json:"externalId"`

	// Content fields; PublishedAt is immutable once set
	Title        string       `gorm:"type:text;not null;default:'';column:title" json:"title"`
	URL          string       `gorm:"type:varchar(1024);not null;default:'';column:url" json:"url"`
	ThumbnailURL string       `gorm:"type:varchar(1024);not null;default:'';column:thumbnail_url" json:"thumbnailUrl"`
	PublishedAt  sql.NullTime `gorm:"index;column:published_at" json:"publishedAt"`

	// Current metric snapshot
	Views          int64   `gorm:"not null;default:0;column:views" json:"views"`
	Likes          int64   `gorm:"not null;default:0;column:likes" json:"likes"`
	Comments       int64   `gorm:"not null;default:0;column:comments" json:"comments"`
	Shares         int64   `gorm:"not null;default:0;column:shares" json:"shares"`
	Saves          int64   `gorm:"not null;default:0;column:saves" json:"saves"`
	Impressions    int64   `gorm:"not null;default:0;column:impressions" json:"impressions"`
	EngagementRate float64 `gorm:"not null;default:0;column:engagement_rate" json:"engagementRate"`

	History  PostHistory `gorm:"type:jsonb;not null;default:'[]';column:history" json:"history"`
	Metadata Metadata    `gorm:"type:jsonb;not null;default:'{}';column:metadata" json:"metadata"`

	LastSyncedAt time.Time `gorm:"not null;column:last_synced_at" json:"lastSyncedAt"`
	CreatedAt    time.Time `gorm:"not null;column:created_at" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`

	Account *Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "creator_posts"
}

// PostMetrics is a post's per-refresh metric block.
type PostMetrics struct {
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	Saves          int64   `json:"saves"`
	Impressions    int64   `json:"impressions"`
	EngagementRate float64 `json:"engagementRate"`
}

// Metrics returns the post's current metric block.
func (p *Post) Metrics() PostMetrics {
	return PostMetrics{
		Views:          p.Views,
		Likes:          p.Likes,
		Comments:       p.Comments,
		Shares:         p.Shares,
		Saves:          p.Saves,
		Impressions:    p.Impressions,
		EngagementRate: p.EngagementRate,
	}
}

// PostSnapshot is one immutable history entry, appended per refresh.
type PostSnapshot struct {
	Date           time.Time `json:"date"`
	Views          int64     `json:"views"`
	Likes          int64     `json:"likes"`
	Comments       int64     `json:"comments"`
	Shares         int64     `json:"shares"`
	Saves          int64     `json:"saves"`
	Impressions    int64     `json:"impressions"`
	EngagementRate float64   `json:"engagementRate"`
}
