package api

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/middleware"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/gofiber/fiber/v2"
)

// ImportFeeds handles POST /api/admin/import. The import runs in the
// background under the caller's identity.
func (h *Handlers) ImportFeeds(c *fiber.Ctx) error {
	p := middleware.CurrentPrincipal(c)
	if err := moderation.Authorize(p, models.RoleAdmin); err != nil {
		return err
	}
	if h.importer == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Feed import is not configured")
	}

	var req importRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}

	log := logger.Ctx(c.UserContext())
	log.Info().
		Int("feed_count", len(req.FeedURLs)).
		Msg("Starting background import of feeds")

	// Keep the request-scoped logger but outlive the request.
	base := context.WithoutCancel(c.UserContext())
	urls := append([]string(nil), req.FeedURLs...)

	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		ctx, cancel := context.WithTimeout(base, h.importTimeout)
		defer cancel()

		start := time.Now()
		res, err := h.importer.Import(ctx, p, urls)
		event := logger.Ctx(ctx).Info()
		if err != nil {
			event = logger.Ctx(ctx).Error().Err(err)
		}
		event.
			Interface("result", res).
			Dur("duration", time.Since(start)).
			Msg("Background import finished")
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "started",
		"message": fmt.Sprintf("Processing %d feed(s) in the background", len(urls)),
		"feeds":   len(urls),
	})
}

// Reconcile handles POST /api/admin/reconcile
func (h *Handlers) Reconcile(c *fiber.Ctx) error {
	res, err := h.svc.Reconcile(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}
