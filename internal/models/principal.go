package models

import "go.mongodb.org/mongo-driver/v2/bson"

type Role string

const (
	RoleUser        Role = "user"
	RoleFactChecker Role = "fact_checker"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleFactChecker, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller as supplied by the auth collaborator.
type Principal struct {
	UserID bson.ObjectID
	Role   Role
}

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Author holds the display fields of a user, read from the users collection.
type Author struct {
	ID       bson.ObjectID `json:"_id" bson:"_id"`
	Username string        `json:"username" bson:"username"`
	Avatar   string        `json:"avatar,omitempty" bson:"avatar,omitempty"`
}
