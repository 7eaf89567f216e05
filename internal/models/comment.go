package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	MaxCommentLength  = 500
	MaxReportReason   = 200
	DefaultReportText = "No reason provided"
)

// ReactionType is a like or dislike on a comment.
type ReactionType string

const (
	Like    ReactionType = "like"
	Dislike ReactionType = "dislike"
)

func (r ReactionType) Valid() bool {
	return r == Like || r == Dislike
}

// Reactor is a reaction ledger entry.
type Reactor struct {
	UserID       bson.ObjectID `json:"userId" bson:"userId"`
	ReactionType ReactionType  `json:"reactionType" bson:"reactionType"`
}

type Comment struct {
	ID           bson.ObjectID  `json:"_id" bson:"_id,omitempty"`
	NewsID       bson.ObjectID  `json:"newsId" bson:"newsId"`
	UserID       bson.ObjectID  `json:"userId" bson:"userId"`
	Content      string         `json:"content" bson:"content"`
	ParentID     *bson.ObjectID `json:"parentId" bson:"parentId"`
	Likes        int            `json:"likes" bson:"likes"`
	Dislikes     int            `json:"dislikes" bson:"dislikes"`
	Reactors     []Reactor      `json:"-" bson:"reactors"`
	Reported     bool           `json:"reported" bson:"reported"`
	ReportReason string         `json:"reportReason,omitempty" bson:"reportReason,omitempty"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt" bson:"updatedAt"`
}

func (c *Comment) ReactionOf(userID bson.ObjectID) (ReactionType, bool) {
	for _, r := range c.Reactors {
		if r.UserID == userID {
			return r.ReactionType, true
		}
	}
	return "", false
}

// ApplyReaction is the comment counterpart of News.ApplyVote.
func (c *Comment) ApplyReaction(ch LedgerChange) bool {
	current, reacted := c.ReactionOf(ch.UserID)
	if !ch.holds(string(current), reacted) {
		return false
	}

	switch ch.Op {
	case LedgerAdd:
		c.Reactors = append(c.Reactors, Reactor{UserID: ch.UserID, ReactionType: ReactionType(ch.To)})
		c.bump(ReactionType(ch.To), 1)
	case LedgerRetract:
		kept := c.Reactors[:0]
		for _, r := range c.Reactors {
			if r.UserID != ch.UserID {
				kept = append(kept, r)
			}
		}
		c.Reactors = kept
		c.bump(ReactionType(ch.From), -1)
	case LedgerSwitch:
		for i := range c.Reactors {
			if c.Reactors[i].UserID == ch.UserID {
				c.Reactors[i].ReactionType = ReactionType(ch.To)
			}
		}
		c.bump(ReactionType(ch.From), -1)
		c.bump(ReactionType(ch.To), 1)
	}
	return true
}

func (c *Comment) bump(t ReactionType, delta int) {
	if t == Like {
		c.Likes += delta
	} else {
		c.Dislikes += delta
	}
}

// CommentView is a comment populated with author display fields.
type CommentView struct {
	Comment
	Author       *Author `json:"author,omitempty"`
	ParentAuthor *Author `json:"parentAuthor,omitempty"`
}

type ReactionTally struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}
