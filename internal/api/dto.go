package api

import (
	"time"

	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/moderation"
)

type listNewsQuery struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	Category string `query:"category"`
	Source   string `query:"source"`
	Search   string `query:"search"`
	SortBy   string `query:"sortBy"`
	Order    string `query:"order" validate:"omitempty,oneof=asc desc"`
}

type pageQuery struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

type listSourcesQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	SortBy string `query:"sortBy"`
	Order  string `query:"order" validate:"omitempty,oneof=asc desc"`
}

type createNewsRequest struct {
	Title            string     `json:"title" validate:"required"`
	Summary          string     `json:"summary" validate:"required"`
	Content          string     `json:"content" validate:"required"`
	Source           string     `json:"source" validate:"required"`
	SourceURL        string     `json:"sourceUrl" validate:"omitempty,url"`
	Category         string     `json:"category" validate:"required"`
	Image            string     `json:"image" validate:"omitempty,url"`
	PublishDate      *time.Time `json:"publishDate"`
	CredibilityScore *int       `json:"credibilityScore"`
}

func (r createNewsRequest) input() moderation.NewsInput {
	return moderation.NewsInput{
		Title:            r.Title,
		Summary:          r.Summary,
		Content:          r.Content,
		Source:           r.Source,
		SourceURL:        r.SourceURL,
		Category:         r.Category,
		Image:            r.Image,
		PublishDate:      r.PublishDate,
		CredibilityScore: r.CredibilityScore,
	}
}

type updateNewsRequest struct {
	Title            *string    `json:"title"`
	Summary          *string    `json:"summary"`
	Content          *string    `json:"content"`
	Source           *string    `json:"source"`
	SourceURL        *string    `json:"sourceUrl" validate:"omitempty,url"`
	Category         *string    `json:"category"`
	Image            *string    `json:"image" validate:"omitempty,url"`
	PublishDate      *time.Time `json:"publishDate"`
	CredibilityScore *int       `json:"credibilityScore"`
}

func (r updateNewsRequest) patch() moderation.NewsPatch {
	return moderation.NewsPatch{
		Title:            r.Title,
		Summary:          r.Summary,
		Content:          r.Content,
		Source:           r.Source,
		SourceURL:        r.SourceURL,
		Category:         r.Category,
		Image:            r.Image,
		PublishDate:      r.PublishDate,
		CredibilityScore: r.CredibilityScore,
	}
}

type voteRequest struct {
	VoteType models.VoteType `json:"voteType"`
}

type credibilityRequest struct {
	CredibilityScore *int `json:"credibilityScore" validate:"required"`
}

type createCommentRequest struct {
	Content  string  `json:"content" validate:"required"`
	ParentID *string `json:"parentId"`
}

type updateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

type reactRequest struct {
	ReactionType models.ReactionType `json:"reactionType"`
}

type reportRequest struct {
	Reason string `json:"reason"`
}

type createSourceRequest struct {
	Name        string            `json:"name" validate:"required"`
	URL         string            `json:"url" validate:"omitempty,url"`
	Description string            `json:"description"`
	Type        models.SourceType `json:"type" validate:"omitempty,oneof=Mainstream Alternative 'Social Media' Blog Government International"`
	Bias        models.Bias       `json:"bias" validate:"omitempty,oneof=Left Center-Left Center Center-Right Right Neutral Unknown"`
}

func (r createSourceRequest) input() moderation.SourceInput {
	return moderation.SourceInput{
		Name:        r.Name,
		URL:         r.URL,
		Description: r.Description,
		Type:        r.Type,
		Bias:        r.Bias,
	}
}

type updateSourceRequest struct {
	Name             *string            `json:"name"`
	URL              *string            `json:"url" validate:"omitempty,url"`
	Description      *string            `json:"description"`
	Type             *models.SourceType `json:"type"`
	Bias             *models.Bias       `json:"bias"`
	CredibilityScore *int               `json:"credibilityScore"`
}

func (r updateSourceRequest) patch() moderation.SourcePatch {
	return moderation.SourcePatch{
		Name:             r.Name,
		URL:              r.URL,
		Description:      r.Description,
		Type:             r.Type,
		Bias:             r.Bias,
		CredibilityScore: r.CredibilityScore,
	}
}

type importRequest struct {
	FeedURLs []string `json:"feed_urls" validate:"required,min=1,dive,url"`
}
