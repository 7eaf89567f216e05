package models

// FeedItem is one entry of an external JSON news feed accepted by the importer.
type FeedItem struct {
	Guid        string `json:"guid"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	Url         string `json:"url"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	PublishedAt string `json:"published_at"`
}
