package models

import "go.mongodb.org/mongo-driver/v2/bson"

// LedgerOp is a transition of a per-user ledger (votes on news, reactions
// on comments).
type LedgerOp int

const (
	// LedgerAdd appends an entry for a user with no current entry.
	LedgerAdd LedgerOp = iota + 1
	// LedgerRetract removes an entry whose type equals From.
	LedgerRetract
	// LedgerSwitch rewrites an entry from From to To in place.
	LedgerSwitch
)

func (op LedgerOp) String() string {
	switch op {
	case LedgerAdd:
		return "add"
	case LedgerRetract:
		return "retract"
	case LedgerSwitch:
		return "switch"
	}
	return "unknown"
}

// LedgerChange is a planned transition together with the state it was
// planned against.
type LedgerChange struct {
	Op     LedgerOp
	UserID bson.ObjectID
	From   string
	To     string
}

func (ch LedgerChange) holds(current string, present bool) bool {
	switch ch.Op {
	case LedgerAdd:
		return !present
	case LedgerRetract, LedgerSwitch:
		return present && current == ch.From
	}
	return false
}
