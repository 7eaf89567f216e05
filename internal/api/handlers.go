package api

import (
	"sync"
	"time"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/feed"
	"github.com/bilgisen/newstrust/internal/middleware"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const defaultImportTimeout = 30 * time.Minute

type Handlers struct {
	svc           *moderation.Service
	importer      *feed.Processor
	validate      *middleware.Validator
	importTimeout time.Duration

	// jobs tracks background imports so shutdown can wait for them.
	jobs sync.WaitGroup
}

// NewHandlers binds the HTTP layer to the service. importer may be nil, in
// which case the import endpoint reports 503.
func NewHandlers(svc *moderation.Service, importer *feed.Processor, importTimeout time.Duration) *Handlers {
	if importTimeout <= 0 {
		importTimeout = defaultImportTimeout
	}
	return &Handlers{
		svc:           svc,
		importer:      importer,
		validate:      middleware.NewValidator(),
		importTimeout: importTimeout,
	}
}

// Wait blocks until background imports have finished.
func (h *Handlers) Wait() {
	h.jobs.Wait()
}

// objectID reads a hex ObjectID route parameter. Malformed ids cannot name
// an existing document, so they are reported as notFound.
func objectID(c *fiber.Ctx, param, notFound string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(c.Params(param))
	if err != nil {
		return bson.ObjectID{}, apperr.NotFound(notFound)
	}
	return id, nil
}

func message(c *fiber.Ctx, msg string) error {
	return c.JSON(fiber.Map{"message": msg})
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}
