package models

import (
	"time"

	"github.com/bilgisen/newstrust/internal/credibility"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// VoteType is a community stance on a news item's authenticity.
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Voter is a vote ledger entry: the current stance of one user.
type Voter struct {
	UserID   bson.ObjectID `json:"userId" bson:"userId"`
	VoteType VoteType      `json:"voteType" bson:"voteType"`
}

// News is a submitted story together with its community and fact-check signals.
type News struct {
	ID          bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title       string        `json:"title" bson:"title"`
	Summary     string        `json:"summary" bson:"summary"`
	Content     string        `json:"content" bson:"content"`
	Source      string        `json:"source" bson:"source"`
	SourceURL   string        `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"`
	Category    string        `json:"category" bson:"category"`
	Image       string        `json:"image,omitempty" bson:"image,omitempty"`
	PublishDate time.Time     `json:"publishDate" bson:"publishDate"`

	CredibilityScore int               `json:"credibilityScore" bson:"credibilityScore"`
	CredibilityLevel credibility.Level `json:"credibilityLevel" bson:"credibilityLevel"`
	FactChecked      bool              `json:"factChecked" bson:"factChecked"`
	FactCheckerID    *bson.ObjectID    `json:"factCheckerId,omitempty" bson:"factCheckerId,omitempty"`
	FactCheckDate    *time.Time        `json:"factCheckDate,omitempty" bson:"factCheckDate,omitempty"`

	Upvotes       int     `json:"upvotes" bson:"upvotes"`
	Downvotes     int     `json:"downvotes" bson:"downvotes"`
	Voters        []Voter `json:"voters" bson:"voters"`
	CommentsCount int     `json:"commentsCount" bson:"commentsCount"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// SetCredibility stores score and the level derived from it.
func (n *News) SetCredibility(score int) {
	n.CredibilityScore = score
	n.CredibilityLevel = credibility.Classify(score)
}

// Certify marks the item fact-checked by reviewer at the given time.
func (n *News) Certify(reviewer bson.ObjectID, at time.Time) {
	n.FactChecked = true
	n.FactCheckerID = &reviewer
	n.FactCheckDate = &at
}

// VoteOf returns the voter's current stance, if any.
func (n *News) VoteOf(userID bson.ObjectID) (VoteType, bool) {
	for _, v := range n.Voters {
		if v.UserID == userID {
			return v.VoteType, true
		}
	}
	return "", false
}

// ApplyVote applies a planned ledger change in memory. It returns false
// without touching n when the change's precondition no longer holds.
func (n *News) ApplyVote(ch LedgerChange) bool {
	current, voted := n.VoteOf(ch.UserID)
	if !ch.holds(string(current), voted) {
		return false
	}

	switch ch.Op {
	case LedgerAdd:
		n.Voters = append(n.Voters, Voter{UserID: ch.UserID, VoteType: VoteType(ch.To)})
		n.bump(VoteType(ch.To), 1)
	case LedgerRetract:
		kept := n.Voters[:0]
		for _, v := range n.Voters {
			if v.UserID != ch.UserID {
				kept = append(kept, v)
			}
		}
		n.Voters = kept
		n.bump(VoteType(ch.From), -1)
	case LedgerSwitch:
		for i := range n.Voters {
			if n.Voters[i].UserID == ch.UserID {
				n.Voters[i].VoteType = VoteType(ch.To)
			}
		}
		n.bump(VoteType(ch.From), -1)
		n.bump(VoteType(ch.To), 1)
	}
	return true
}

func (n *News) bump(t VoteType, delta int) {
	if t == Upvote {
		n.Upvotes += delta
	} else {
		n.Downvotes += delta
	}
}

// VoteTally is the response projection of a vote.
type VoteTally struct {
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	Voters    []Voter `json:"voters"`
}

func (n *News) Tally() VoteTally {
	voters := n.Voters
	if voters == nil {
		voters = []Voter{}
	}
	return VoteTally{Upvotes: n.Upvotes, Downvotes: n.Downvotes, Voters: voters}
}

// CredibilityView is the response projection of a credibility update.
type CredibilityView struct {
	CredibilityScore int               `json:"credibilityScore"`
	CredibilityLevel credibility.Level `json:"credibilityLevel"`
	FactChecked      bool              `json:"factChecked"`
}
