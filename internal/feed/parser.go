package feed

import (
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/microcosm-cc/bluemonday"
)

const (
	defaultCategory = "general"
	summaryLength   = 200
)

// Parser handles cleaning and normalizing feed items
type Parser struct {
	policy *bluemonday.Policy
}

func NewParser() *Parser {
	return &Parser{policy: bluemonday.StrictPolicy()}
}

// CleanHTML removes HTML tags and normalizes whitespace
func (p *Parser) CleanHTML(input string) string {
	cleaned := html.UnescapeString(p.policy.Sanitize(input))
	return strings.Join(strings.Fields(cleaned), " ")
}

// NormalizeFeedItem cleans the text fields of item and fills in the summary
// and category when the feed left them out.
func (p *Parser) NormalizeFeedItem(item models.FeedItem) models.FeedItem {
	out := models.FeedItem{
		Guid:        strings.TrimSpace(item.Guid),
		Title:       p.CleanHTML(item.Title),
		Summary:     p.CleanHTML(item.Summary),
		Content:     p.CleanHTML(item.Content),
		Source:      p.CleanHTML(item.Source),
		Url:         strings.TrimSpace(item.Url),
		Category:    strings.ToLower(p.CleanHTML(item.Category)),
		Image:       strings.TrimSpace(item.Image),
		PublishedAt: strings.TrimSpace(item.PublishedAt),
	}
	if out.Guid == "" {
		out.Guid = out.Url
	}
	if out.Content == "" {
		out.Content = out.Summary
	}
	if out.Summary == "" {
		out.Summary = truncate(out.Content, summaryLength)
	}
	if out.Category == "" {
		out.Category = defaultCategory
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

// ValidateFeedItem checks if the feed item has the required fields
func (p *Parser) ValidateFeedItem(item models.FeedItem) error {
	var errs []error
	if item.Guid == "" {
		errs = append(errs, errors.New("missing required field: guid or url"))
	}
	if item.Title == "" {
		errs = append(errs, errors.New("missing required field: title"))
	}
	if item.Content == "" {
		errs = append(errs, errors.New("missing required field: content"))
	}
	if item.Source == "" {
		errs = append(errs, errors.New("missing required field: source"))
	}
	return errors.Join(errs...)
}

// ToNewsInput converts a normalized item to a news submission. Unparseable
// publish dates are dropped so the item is dated at import time.
func (p *Parser) ToNewsInput(item models.FeedItem) moderation.NewsInput {
	in := moderation.NewsInput{
		Title:     item.Title,
		Summary:   item.Summary,
		Content:   item.Content,
		Source:    item.Source,
		SourceURL: item.Url,
		Category:  item.Category,
		Image:     item.Image,
	}
	if item.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			in.PublishDate = &t
		}
	}
	return in
}
