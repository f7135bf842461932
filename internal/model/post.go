package model

import "time"

// Post represents a short text post published by an account.
//
// PostBy holds the author's display name (Account.Name), not the account id.
// Posts therefore survive an author rename only if the rename rewrites them,
// and account deletion must delete them explicitly — there is no foreign key
// doing either automatically.
//
// Comments live inside their parent post as an ordered sequence. They are
// never addressed outside of it, so they have no table of their own.
type Post struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	PostBy   string    `json:"postBy"`
	Date     time.Time `json:"date"`
	Comments []Comment `json:"comments"`
}

// Comment is a reply attached to a post. Its ID is generated independently
// of the post's ID; ownership checks compare CommentBy, not Post.PostBy.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CommentBy string    `json:"commentBy"`
	Date      time.Time `json:"date"`
}
