package models

import (
	"time"

	"github.com/bilgisen/newstrust/internal/credibility"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const DefaultSourceScore = 50

type SourceType string

const (
	Mainstream    SourceType = "Mainstream"
	Alternative   SourceType = "Alternative"
	SocialMedia   SourceType = "Social Media"
	Blog          SourceType = "Blog"
	Government    SourceType = "Government"
	International SourceType = "International"
)

type Bias string

const (
	BiasLeft        Bias = "Left"
	BiasCenterLeft  Bias = "Center-Left"
	BiasCenter      Bias = "Center"
	BiasCenterRight Bias = "Center-Right"
	BiasRight       Bias = "Right"
	BiasNeutral     Bias = "Neutral"
	BiasUnknown     Bias = "Unknown"
)

// Source is a publication that news items are attributed to by name.
type Source struct {
	ID               bson.ObjectID     `json:"_id" bson:"_id,omitempty"`
	Name             string            `json:"name" bson:"name"`
	URL              string            `json:"url,omitempty" bson:"url,omitempty"`
	Description      string            `json:"description,omitempty" bson:"description,omitempty"`
	CredibilityScore int               `json:"credibilityScore" bson:"credibilityScore"`
	CredibilityLevel credibility.Level `json:"credibilityLevel" bson:"credibilityLevel"`
	Type             SourceType        `json:"type" bson:"type"`
	Bias             Bias              `json:"bias" bson:"bias"`
	Verified         bool              `json:"verified" bson:"verified"`
	VerifiedBy       *bson.ObjectID    `json:"verifiedBy,omitempty" bson:"verifiedBy,omitempty"`
	VerifiedDate     *time.Time        `json:"verifiedDate,omitempty" bson:"verifiedDate,omitempty"`
	NewsCount        int               `json:"newsCount" bson:"newsCount"`
	CreatedAt        time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// NewSource returns an unverified source with default score, type and bias.
func NewSource(name string, now time.Time) *Source {
	s := &Source{
		Name:      name,
		Type:      Mainstream,
		Bias:      BiasUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.SetCredibility(DefaultSourceScore)
	return s
}

func (s *Source) SetCredibility(score int) {
	s.CredibilityScore = score
	s.CredibilityLevel = credibility.Classify(score)
}

func (s *Source) MarkVerified(by bson.ObjectID, at time.Time) {
	s.Verified = true
	s.VerifiedBy = &by
	s.VerifiedDate = &at
}
