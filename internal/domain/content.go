package domain

import "time"

// VideoChannel is the video-platform channel metadata plus recent and popular uploads.
type VideoChannel struct {
	ChannelID       string   `json:"channelId"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	CustomURL       string   `json:"customUrl,omitempty"`
	URL             string   `json:"url"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	SubscriberCount int64    `json:"subscriberCount"`
	VideoCount      int64    `json:"videoCount"`
	ViewCount       int64    `json:"viewCount"`
	RecentVideos    []Video  `json:"recentVideos"`
	PopularVideos   []Video  `json:"popularVideos"`
	Tags            []string `json:"tags"`
}

type Video struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ChannelID   string     `json:"channelId,omitempty"`
	ChannelName string     `json:"channelName,omitempty"`
	URL         string     `json:"url"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

type Book struct {
	Title         string         `json:"title"`
	Subtitle      string         `json:"subtitle,omitempty"`
	Authors       []string       `json:"authors"`
	Publisher     string         `json:"publisher,omitempty"`
	PublishedDate string         `json:"publishedDate,omitempty"`
	ISBN10        string         `json:"isbn10,omitempty"`
	ISBN13        string         `json:"isbn13,omitempty"`
	Thumbnail     string         `json:"thumbnail,omitempty"`
	InfoURL       string         `json:"infoUrl,omitempty"`
	PageCount     int64          `json:"pageCount,omitempty"`
	PurchaseLinks []PurchaseLink `json:"purchaseLinks"`
}

type PurchaseLink struct {
	Store string `json:"store"`
	URL   string `json:"url"`
}

type Podcast struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	FeedURL      string     `json:"feedUrl,omitempty"`
	URL          string     `json:"url,omitempty"`
	Artwork      string     `json:"artwork,omitempty"`
	Genre        string     `json:"genre,omitempty"`
	EpisodeCount int64      `json:"episodeCount"`
	LatestAt     *time.Time `json:"latestAt,omitempty"`
}
