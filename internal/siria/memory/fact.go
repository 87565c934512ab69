// Package memory implements long-term memory for Siria: pattern-based
// extraction of self-disclosed facts from chat messages, persistence with
// latest-wins/accumulate semantics, and rendering of the compact memory
// block injected into the completion prompt.
package memory

import "strconv"

// Fact keys form a closed set. Identity keys hold a single live value per
// owner (latest wins); KeyLikes accumulates distinct values.
const (
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
	KeyLikes     = "likes"
)

// Fact is a single extracted (key, value) pair.
type Fact struct {
	Key   string
	Value string
}

// Owner identifies who a fact belongs to: a registered user (UserID != 0)
// or a guest (GuestKey != ""). Exactly one side is set.
type Owner struct {
	UserID   int64
	GuestKey string
}

// UserOwner returns an Owner for a registered user id.
func UserOwner(id int64) Owner {
	return Owner{UserID: id}
}

// GuestOwner returns an Owner for a guest key.
func GuestOwner(key string) Owner {
	return Owner{GuestKey: key}
}

// IsZero reports whether no owner is set.
func (o Owner) IsZero() bool {
	return o.UserID == 0 && o.GuestKey == ""
}

// Ref returns the canonical owner reference used as the storage key,
// "user:<id>" or "guest:<key>". The prefix keeps user ids and guest keys
// from ever colliding in the memory_facts table.
func (o Owner) Ref() string {
	if o.UserID != 0 {
		return "user:" + strconv.FormatInt(o.UserID, 10)
	}
	return "guest:" + o.GuestKey
}
