package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/pkg/config"
	"github.com/creatorlens/creatorlens/pkg/logging"
)

// InstagramFetcher fetches account and media data from the Instagram
// Graph API.
type InstagramFetcher struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewInstagramFetcher creates a new Instagram fetcher
func NewInstagramFetcher(cfg *config.ProviderConfig, client *http.Client) *InstagramFetcher {
	return &InstagramFetcher{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  client,
		logger:  logging.WithComponent("instagram-fetcher"),
	}
}

// Platform implements Fetcher
func (f *InstagramFetcher) Platform() models.Platform {
	return models.PlatformInstagram
}

type instagramProfile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	AccountType    string `json:"account_type"`
	Biography      string `json:"biography"`
	FollowersCount int64  `json:"followers_count"`
	MediaCount     int64  `json:"media_count"`
}

type instagramMediaList struct {
	Data []struct {
		ID            string `json:"id"`
		Caption       string `json:"caption"`
		MediaType     string `json:"media_type"`
		Permalink     string `json:"permalink"`
		ThumbnailURL  string `json:"thumbnail_url"`
		MediaURL      string `json:"media_url"`
		Timestamp     string `json:"timestamp"`
		LikeCount     int64  `json:"like_count"`
		CommentsCount int64  `json:"comments_count"`
		ViewCount     int64  `json:"view_count"`
		ShareCount    int64  `json:"share_count"`
		SavedCount    int64  `json:"saved_count"`
	} `json:"data"`
}

// Fetch implements Fetcher
func (f *InstagramFetcher) Fetch(ctx context.Context, opts FetchOptions) (*Payload, error) {
	profile, err := f.fetchProfile(ctx, opts)
	if err != nil {
		return nil, err
	}

	media, err := f.fetchMedia(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched Instagram account",
		zap.String("account_id", profile.ID),
		zap.Int("media_count", len(media)))

	return &Payload{
		Account: AccountPayload{
			AccountID:   profile.ID,
			Username:    profile.Username,
			DisplayName: profile.Name,
			ProfileURL:  "https://instagram.com/" + profile.Username,
			Stats: AccountStatsPayload{
				Followers: profile.FollowersCount,
			},
			Metadata: models.Metadata{
				"accountType": profile.AccountType,
				"biography":   profile.Biography,
				"mediaCount":  profile.MediaCount,
			},
		},
		Media: media,
	}, nil
}

func (f *InstagramFetcher) fetchProfile(ctx context.Context, opts FetchOptions) (*instagramProfile, error) {
	const fields = "id,username,name,account_type,biography,followers_count,media_count"

	var endpoint string
	if opts.AccountID != "" {
		endpoint = fmt.Sprintf("%s/%s?fields=%s&access_token=%s",
			f.baseURL, url.PathEscape(opts.AccountID), fields, url.QueryEscape(f.token))
	} else if opts.Username == "" {
		// No identifier: fetch the token's own account (platform sweep)
		endpoint = fmt.Sprintf("%s/me?fields=%s&access_token=%s",
			f.baseURL, fields, url.QueryEscape(f.token))
	} else {
		// Handle-based lookup via business discovery, used when the stored
		// provider id has gone stale.
		endpoint = fmt.Sprintf("%s/me?fields=business_discovery.username(%s){%s}&access_token=%s",
			f.baseURL, url.QueryEscape(opts.Username), fields, url.QueryEscape(f.token))

		var wrapper struct {
			BusinessDiscovery instagramProfile `json:"business_discovery"`
		}
		if err := getJSON(ctx, f.client, endpoint, nil, &wrapper); err != nil {
			return nil, err
		}
		return &wrapper.BusinessDiscovery, nil
	}

	var profile instagramProfile
	if err := getJSON(ctx, f.client, endpoint, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (f *InstagramFetcher) fetchMedia(ctx context.Context, accountID string) ([]PostPayload, error) {
	const fields = "id,caption,media_type,permalink,thumbnail_url,media_url,timestamp," +
		"like_count,comments_count,view_count,share_count,saved_count"

	endpoint := fmt.Sprintf("%s/%s/media?fields=%s&access_token=%s",
		f.baseURL, url.PathEscape(accountID), fields, url.QueryEscape(f.token))

	var list instagramMediaList
	if err := getJSON(ctx, f.client, endpoint, nil, &list); err != nil {
		return nil, err
	}

	posts := make([]PostPayload, 0, len(list.Data))
	for _, m := range list.Data {
		post := PostPayload{
			ExternalID:   m.ID,
			Title:        m.Caption,
			URL:          m.Permalink,
			ThumbnailURL: m.ThumbnailURL,
			Metrics: PostMetricsPayload{
				Views:    m.ViewCount,
				Likes:    m.LikeCount,
				Comments: m.CommentsCount,
				Shares:   m.ShareCount,
				Saves:    m.SavedCount,
			},
			Metadata: models.Metadata{
				"mediaType": m.MediaType,
				"mediaUrl":  m.MediaURL,
			},
		}
		if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			post.PublishedAt = &ts
		}
		posts = append(posts, post)
	}
	return posts, nil
}
