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

// TikTokFetcher fetches account and video data from the TikTok open API.
type TikTokFetcher struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewTikTokFetcher creates a new TikTok fetcher
func NewTikTokFetcher(cfg *config.ProviderConfig, client *http.Client) *TikTokFetcher {
	return &TikTokFetcher{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  client,
		logger:  logging.WithComponent("tiktok-fetcher"),
	}
}

// Platform implements Fetcher
func (f *TikTokFetcher) Platform() models.Platform {
	return models.PlatformTikTok
}

type tiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

type tiktokUserResponse struct {
	Data struct {
		User struct {
			OpenID         string `json:"open_id"`
			Username       string `json:"username"`
			DisplayName    string `json:"display_name"`
			AvatarURL      string `json:"avatar_url"`
			BioDescription string `json:"bio_description"`
			IsVerified     bool   `json:"is_verified"`
			FollowerCount  int64  `json:"follower_count"`
			LikesCount     int64  `json:"likes_count"`
			VideoCount     int64  `json:"video_count"`
		} `json:"user"`
	} `json:"data"`
	Error tiktokError `json:"error"`
}

type tiktokVideoResponse struct {
	Data struct {
		Videos []struct {
			ID            string `json:"id"`
			Title         string `json:"title"`
			ShareURL      string `json:"share_url"`
			CoverImageURL string `json:"cover_image_url"`
			CreateTime    int64  `json:"create_time"`
			ViewCount     int64  `json:"view_count"`
			LikeCount     int64  `json:"like_count"`
			CommentCount  int64  `json:"comment_count"`
			ShareCount    int64  `json:"share_count"`
			FavoriteCount int64  `json:"favorite_count"`
		} `json:"videos"`
		HasMore bool  `json:"has_more"`
		Cursor  int64 `json:"cursor"`
	} `json:"data"`
	Error tiktokError `json:"error"`
}

// Fetch implements Fetcher
func (f *TikTokFetcher) Fetch(ctx context.Context, opts FetchOptions) (*Payload, error) {
	const userFields = "open_id,username,display_name,avatar_url,bio_description," +
		"is_verified,follower_count,likes_count,video_count"

	// With neither identifier set the API returns the token's own user,
	// which is what the platform sweep wants.
	query := url.Values{"fields": {userFields}}
	if opts.AccountID != "" {
		query.Set("open_id", opts.AccountID)
	} else if opts.Username != "" {
		query.Set("username", opts.Username)
	}

	var userResp tiktokUserResponse
	endpoint := fmt.Sprintf("%s/v2/user/info/?%s", f.baseURL, query.Encode())
	if err := getJSON(ctx, f.client, endpoint, bearerHeader(f.token), &userResp); err != nil {
		return nil, err
	}
	if userResp.Error.Code != "" && userResp.Error.Code != "ok" {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: userResp.Error.Message}
	}

	user := userResp.Data.User

	const videoFields = "id,title,share_url,cover_image_url,create_time," +
		"view_count,like_count,comment_count,share_count,favorite_count"

	var videoResp tiktokVideoResponse
	endpoint = fmt.Sprintf("%s/v2/video/list/?fields=%s&open_id=%s",
		f.baseURL, url.QueryEscape(videoFields), url.QueryEscape(user.OpenID))
	if err := getJSON(ctx, f.client, endpoint, bearerHeader(f.token), &videoResp); err != nil {
		return nil, err
	}
	if videoResp.Error.Code != "" && videoResp.Error.Code != "ok" {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: videoResp.Error.Message}
	}

	media := make([]PostPayload, 0, len(videoResp.Data.Videos))
	for _, v := range videoResp.Data.Videos {
		published := time.Unix(v.CreateTime, 0).UTC()
		media = append(media, PostPayload{
			ExternalID:   v.ID,
			Title:        v.Title,
			URL:          v.ShareURL,
			ThumbnailURL: v.CoverImageURL,
			PublishedAt:  &published,
			Metrics: PostMetricsPayload{
				Views:    v.ViewCount,
				Likes:    v.LikeCount,
				Comments: v.CommentCount,
				Shares:   v.ShareCount,
				Saves:    v.FavoriteCount,
			},
		})
	}

	f.logger.Debug("Fetched TikTok account",
		zap.String("open_id", user.OpenID),
		zap.Int("video_count", len(media)))

	return &Payload{
		Account: AccountPayload{
			AccountID:   user.OpenID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			ProfileURL:  "https://www.tiktok.com/@" + user.Username,
			Stats: AccountStatsPayload{
				Followers:  user.FollowerCount,
				TotalLikes: user.LikesCount,
			},
			Metadata: models.Metadata{
				"bio":        user.BioDescription,
				"isVerified": user.IsVerified,
				"videoCount": user.VideoCount,
				"avatarUrl":  user.AvatarURL,
			},
		},
		Media: media,
	}, nil
}
