package feed

import (
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
)

// Kind distinguishes ordinary posts from sitter job listings.
type Kind string

const (
	KindPost    Kind = "post"
	KindVacancy Kind = "vacancy"
)

// Vacancy describes a sitting job offered through a vacancy post.
type Vacancy struct {
	PetID       string    `json:"pet_id"`
	StartDate   date.Date `json:"start_date"`
	EndDate     date.Date `json:"end_date"`
	City        string    `json:"city"`
	BudgetCents int64     `json:"budget_cents,omitempty"`
}

// Post is a feed entry.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Kind         Kind      `json:"kind"`
	Content      string    `json:"content"`
	Vacancy      *Vacancy  `json:"vacancy,omitempty"`
	Media        []Media   `json:"media"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	LikedByMe    bool      `json:"liked_by_me"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Media is an uploaded attachment of a post.
type Media struct {
	ID          string    `json:"id" db:"id"`
	PostID      string    `json:"post_id" db:"post_id"`
	URL         string    `json:"url" db:"url"`
	BlobKey     string    `json:"-" db:"blob_key"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Comment is a reply to a post.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	PostID    string    `json:"post_id" db:"post_id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Filter narrows the feed listing.
type Filter struct {
	Kind     Kind
	AuthorID string
	Limit    int
	Offset   int
}
