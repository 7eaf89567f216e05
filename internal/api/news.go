package api

import (
	"github.com/bilgisen/newstrust/internal/middleware"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/gofiber/fiber/v2"
)

const newsNotFound = "News not found"

// ListNews handles GET /api/news
func (h *Handlers) ListNews(c *fiber.Ctx) error {
	var q listNewsQuery
	if err := h.validate.ParseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.svc.ListNews(c.UserContext(), moderation.ListNewsQuery{
		Page:     q.Page,
		Limit:    q.Limit,
		Category: q.Category,
		Source:   q.Source,
		Search:   q.Search,
		SortBy:   q.SortBy,
		Order:    q.Order,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"news":  page.Items,
		"page":  page.Page,
		"pages": page.Pages,
		"total": page.Total,
	})
}

// GetNews handles GET /api/news/:id
func (h *Handlers) GetNews(c *fiber.Ctx) error {
	id, err := objectID(c, "id", newsNotFound)
	if err != nil {
		return err
	}
	n, err := h.svc.GetNews(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(n)
}

// CreateNews handles POST /api/news
func (h *Handlers) CreateNews(c *fiber.Ctx) error {
	var req createNewsRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	n, err := h.svc.CreateNews(c.UserContext(), middleware.CurrentPrincipal(c), req.input())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// UpdateNews handles PUT /api/news/:id
func (h *Handlers) UpdateNews(c *fiber.Ctx) error {
	id, err := objectID(c, "id", newsNotFound)
	if err != nil {
		return err
	}
	var req updateNewsRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	n, err := h.svc.UpdateNews(c.UserContext(), middleware.CurrentPrincipal(c), id, req.patch())
	if err != nil {
		return err
	}
	return c.JSON(n)
}

// DeleteNews handles DELETE /api/news/:id
func (h *Handlers) DeleteNews(c *fiber.Ctx) error {
	id, err := objectID(c, "id", newsNotFound)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNews(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return err
	}
	return message(c, "News removed")
}

// Vote handles POST /api/news/:id/vote
func (h *Handlers) Vote(c *fiber.Ctx) error {
	id, err := objectID(c, "id", newsNotFound)
	if err != nil {
		return err
	}
	var req voteRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	tally, err := h.svc.CastVote(c.UserContext(), middleware.CurrentPrincipal(c), id, req.VoteType)
	if err != nil {
		return err
	}
	return c.JSON(tally)
}

// UpdateCredibility handles PUT /api/news/:id/credibility
func (h *Handlers) UpdateCredibility(c *fiber.Ctx) error {
	id, err := objectID(c, "id", newsNotFound)
	if err != nil {
		return err
	}
	var req credibilityRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	view, err := h.svc.UpdateNewsCredibility(c.UserContext(), middleware.CurrentPrincipal(c), id, *req.CredibilityScore)
	if err != nil {
		return err
	}
	return c.JSON(view)
}
