// Package model defines the data structures used throughout the application.
package model

import "time"

// Account represents a registered account.
//
// Two distinct identifiers exist on purpose:
//   - Username is the login key. It never appears in the social graph.
//   - Name is the public display name. It is the node key of the social
//     graph and the authorship key on posts.
//
// WHY STORE NAMES, NOT IDS, IN Following/Followers?
// The follow relation is kept as a denormalized set of display names on both
// endpoints rather than a join table of ids. Building a feed then needs a
// single set-membership query (post_by IN following) instead of a join, at
// the cost of the application having to keep the two sides symmetric itself:
// for any accounts A and B, B.Name ∈ A.Following must hold exactly when
// A.Name ∈ B.Followers, and A.Name must never appear in A.Following.
// Every graph mutation in the service layer maintains that invariant.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // bcrypt hash, never serialized
	Name         string    `json:"name"`
	Following    []string  `json:"following"`
	Followers    []string  `json:"followers"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsFollowing reports whether the account currently follows the given
// display name.
func (a *Account) IsFollowing(name string) bool {
	for _, n := range a.Following {
		if n == name {
			return true
		}
	}
	return false
}
