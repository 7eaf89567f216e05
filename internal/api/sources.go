package api

import (
	"github.com/bilgisen/newstrust/internal/middleware"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/gofiber/fiber/v2"
)

const sourceNotFound = "Source not found"

// ListSources handles GET /api/sources
func (h *Handlers) ListSources(c *fiber.Ctx) error {
	var q listSourcesQuery
	if err := h.validate.ParseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.svc.ListSources(c.UserContext(), moderation.ListSourcesQuery{
		Page:   q.Page,
		Limit:  q.Limit,
		Search: q.Search,
		SortBy: q.SortBy,
		Order:  q.Order,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"sources": page.Items,
		"page":    page.Page,
		"pages":   page.Pages,
		"total":   page.Total,
	})
}

// TopSources handles GET /api/sources/top
func (h *Handlers) TopSources(c *fiber.Ctx) error {
	sources, err := h.svc.TopSources(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(sources)
}

// GetSource handles GET /api/sources/:id
func (h *Handlers) GetSource(c *fiber.Ctx) error {
	id, err := objectID(c, "id", sourceNotFound)
	if err != nil {
		return err
	}
	src, err := h.svc.GetSource(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(src)
}

// CreateSource handles POST /api/sources
func (h *Handlers) CreateSource(c *fiber.Ctx) error {
	var req createSourceRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	src, err := h.svc.CreateSource(c.UserContext(), middleware.CurrentPrincipal(c), req.input())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(src)
}

// UpdateSource handles PUT /api/sources/:id
func (h *Handlers) UpdateSource(c *fiber.Ctx) error {
	id, err := objectID(c, "id", sourceNotFound)
	if err != nil {
		return err
	}
	var req updateSourceRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	src, err := h.svc.UpdateSource(c.UserContext(), middleware.CurrentPrincipal(c), id, req.patch())
	if err != nil {
		return err
	}
	return c.JSON(src)
}

// DeleteSource handles DELETE /api/sources/:id
func (h *Handlers) DeleteSource(c *fiber.Ctx) error {
	id, err := objectID(c, "id", sourceNotFound)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSource(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return err
	}
	return message(c, "Source removed")
}

// VerifySource handles PUT /api/sources/:id/verify
func (h *Handlers) VerifySource(c *fiber.Ctx) error {
	id, err := objectID(c, "id", sourceNotFound)
	if err != nil {
		return err
	}
	src, err := h.svc.VerifySource(c.UserContext(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"_id":      src.ID,
		"name":     src.Name,
		"verified": src.Verified,
	})
}
