package moderation

import (
	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// requireRole is the one place role gates are decided.
func requireRole(p models.Principal, roles ...models.Role) error {
	if p.UserID.IsZero() {
		return apperr.Unauthorized("Not authorized, no token")
	}
	if len(roles) > 0 && !p.HasRole(roles...) {
		return apperr.Forbidden("User role " + string(p.Role) + " is not authorized to access this resource")
	}
	return nil
}

// Authorize applies the role gate for work that runs outside a service
// call, such as a background import.
func Authorize(p models.Principal, roles ...models.Role) error {
	return requireRole(p, roles...)
}

// requireAuthorOrAdmin allows the owner of a resource or an admin.
func requireAuthorOrAdmin(p models.Principal, owner bson.ObjectID, denied string) error {
	if err := requireRole(p); err != nil {
		return err
	}
	if p.UserID == owner {
		return nil
	}
	if requireRole(p, models.RoleAdmin) != nil {
		return apperr.Forbidden(denied)
	}
	return nil
}
