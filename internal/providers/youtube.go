package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/pkg/config"
	"github.com/creatorlens/creatorlens/pkg/logging"
)

// YouTubeFetcher fetches channel and video data from the YouTube Data API.
type YouTubeFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewYouTubeFetcher creates a new YouTube fetcher
func NewYouTubeFetcher(cfg *config.ProviderConfig, client *http.Client) *YouTubeFetcher {
	return &YouTubeFetcher{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.Token,
		client:  client,
		logger:  logging.WithComponent("youtube-fetcher"),
	}
}

// Platform implements Fetcher
func (f *YouTubeFetcher) Platform() models.Platform {
	return models.PlatformYouTube
}

type youtubeChannelList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			CustomURL   string `json:"customUrl"`
			Country     string `json:"country"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount       string `json:"viewCount"`
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubePlaylistItemList struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubeVideoList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount     string `json:"viewCount"`
			LikeCount     string `json:"likeCount"`
			CommentCount  string `json:"commentCount"`
			FavoriteCount string `json:"favoriteCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Fetch implements Fetcher
func (f *YouTubeFetcher) Fetch(ctx context.Context, opts FetchOptions) (*Payload, error) {
	channel, err := f.fetchChannel(ctx, opts)
	if err != nil {
		return nil, err
	}

	videoIDs, err := f.fetchUploadIDs(ctx, channel.uploadsPlaylist)
	if err != nil {
		return nil, err
	}

	media, err := f.fetchVideos(ctx, videoIDs)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched YouTube channel",
		zap.String("channel_id", channel.payload.AccountID),
		zap.Int("video_count", len(media)))

	payload := channel.payload
	return &Payload{Account: payload, Media: media}, nil
}

type youtubeChannel struct {
	payload         AccountPayload
	uploadsPlaylist string
}

func (f *YouTubeFetcher) fetchChannel(ctx context.Context, opts FetchOptions) (*youtubeChannel, error) {
	query := url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"key":  {f.apiKey},
	}
	switch {
	case opts.AccountID != "":
		query.Set("id", opts.AccountID)
	case opts.Username != "":
		query.Set("forHandle", "@"+strings.TrimPrefix(opts.Username, "@"))
	default:
		// Platform sweep: fetch the authorized user's own channel
		query.Set("mine", "true")
	}

	var list youtubeChannelList
	endpoint := fmt.Sprintf("%s/channels?%s", f.baseURL, query.Encode())
	if err := getJSON(ctx, f.client, endpoint, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "channel not found"}
	}

	item := list.Items[0]
	username := strings.TrimPrefix(item.Snippet.CustomURL, "@")
	return &youtubeChannel{
		payload: AccountPayload{
			AccountID:   item.ID,
			Username:    username,
			DisplayName: item.Snippet.Title,
			ProfileURL:  "https://www.youtube.com/" + item.Snippet.CustomURL,
			Stats: AccountStatsPayload{
				Followers:  parseCount(item.Statistics.SubscriberCount),
				TotalViews: parseCount(item.Statistics.ViewCount),
			},
			Metadata: models.Metadata{
				"description": item.Snippet.Description,
				"country":     item.Snippet.Country,
				"videoCount":  parseCount(item.Statistics.VideoCount),
			},
		},
		uploadsPlaylist: item.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}

func (f *YouTubeFetcher) fetchUploadIDs(ctx context.Context, playlistID string) ([]string, error) {
	if playlistID == "" {
		return nil, nil
	}

	query := url.Values{
		"part":       {"contentDetails"},
		"playlistId": {playlistID},
		"maxResults": {"50"},
		"key":        {f.apiKey},
	}

	var list youtubePlaylistItemList
	endpoint := fmt.Sprintf("%s/playlistItems?%s", f.baseURL, query.Encode())
	if err := getJSON(ctx, f.client, endpoint, nil, &list); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		ids = append(ids, item.ContentDetails.VideoID)
	}
	return ids, nil
}

func (f *YouTubeFetcher) fetchVideos(ctx context.Context, videoIDs []string) ([]PostPayload, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}

	query := url.Values{
		"part": {"snippet,statistics"},
		"id":   {strings.Join(videoIDs, ",")},
		"key":  {f.apiKey},
	}

	var list youtubeVideoList
	endpoint := fmt.Sprintf("%s/videos?%s", f.baseURL, query.Encode())
	if err := getJSON(ctx, f.client, endpoint, nil, &list); err != nil {
		return nil, err
	}

	media := make([]PostPayload, 0, len(list.Items))
	for _, v := range list.Items {
		post := PostPayload{
			ExternalID:   v.ID,
			Title:        v.Snippet.Title,
			URL:          "https://www.youtube.com/watch?v=" + v.ID,
			ThumbnailURL: v.Snippet.Thumbnails.High.URL,
			Metrics: PostMetricsPayload{
				Views:    parseCount(v.Statistics.ViewCount),
				Likes:    parseCount(v.Statistics.LikeCount),
				Comments: parseCount(v.Statistics.CommentCount),
				Saves:    parseCount(v.Statistics.FavoriteCount),
			},
		}
		if ts, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			post.PublishedAt = &ts
		}
		media = append(media, post)
	}
	return media, nil
}

// parseCount parses the numeric strings the YouTube API uses for counters.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
