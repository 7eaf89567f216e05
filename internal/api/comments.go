package api

import (
	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const commentNotFound = "Comment not found"

// ListComments handles GET /api/news/:newsId/comments
func (h *Handlers) ListComments(c *fiber.Ctx) error {
	newsID, err := objectID(c, "newsId", newsNotFound)
	if err != nil {
		return err
	}
	var q pageQuery
	if err := h.validate.ParseQuery(c, &q); err != nil {
		return err
	}

	page, err := h.svc.ListComments(c.UserContext(), newsID, q.Page, q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"comments": page.Items,
		"page":     page.Page,
		"pages":    page.Pages,
		"total":    page.Total,
	})
}

// CreateComment handles POST /api/news/:newsId/comments
func (h *Handlers) CreateComment(c *fiber.Ctx) error {
	newsID, err := objectID(c, "newsId", newsNotFound)
	if err != nil {
		return err
	}
	var req createCommentRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}

	var parentID *bson.ObjectID
	if req.ParentID != nil && *req.ParentID != "" {
		id, err := bson.ObjectIDFromHex(*req.ParentID)
		if err != nil {
			return apperr.Invalid("Invalid parent comment")
		}
		parentID = &id
	}

	view, err := h.svc.CreateComment(c.UserContext(), middleware.CurrentPrincipal(c), newsID, req.Content, parentID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// UpdateComment handles PUT /api/comments/:id
func (h *Handlers) UpdateComment(c *fiber.Ctx) error {
	id, err := objectID(c, "id", commentNotFound)
	if err != nil {
		return err
	}
	var req updateCommentRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.svc.UpdateComment(c.UserContext(), middleware.CurrentPrincipal(c), id, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (h *Handlers) DeleteComment(c *fiber.Ctx) error {
	id, err := objectID(c, "id", commentNotFound)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteComment(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return err
	}
	return message(c, "Comment removed")
}

// React handles POST /api/comments/:id/react
func (h *Handlers) React(c *fiber.Ctx) error {
	id, err := objectID(c, "id", commentNotFound)
	if err != nil {
		return err
	}
	var req reactRequest
	if err := h.validate.ParseBody(c, &req); err != nil {
		return err
	}
	tally, err := h.svc.React(c.UserContext(), middleware.CurrentPrincipal(c), id, req.ReactionType)
	if err != nil {
		return err
	}
	return c.JSON(tally)
}

// Report handles POST /api/comments/:id/report
func (h *Handlers) Report(c *fiber.Ctx) error {
	id, err := objectID(c, "id", commentNotFound)
	if err != nil {
		return err
	}
	var req reportRequest
	if len(c.Body()) > 0 {
		if err := h.validate.ParseBody(c, &req); err != nil {
			return err
		}
	}
	if err := h.svc.Report(c.UserContext(), middleware.CurrentPrincipal(c), id, req.Reason); err != nil {
		return err
	}
	return message(c, "Comment reported successfully")
}
