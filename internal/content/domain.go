package content

import (
	"context"
	"errors"
	"time"

	"github.com/withalice/portal/internal/authz"
)

// Category buckets a post into one of the community boards.
type Category string

const (
	CategoryNotice Category = "notice"
	CategoryFree   Category = "free"
	CategoryInfo   Category = "info"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryNotice, CategoryFree, CategoryInfo:
		return true
	}
	return false
}

// Post is a community board entry. Secret and Password are fixed at
// creation and never mutated afterward; the gate re-evaluates them on
// every read instead of persisting an unlocked flag.
type Post struct {
	ID          int64
	Title       string
	Body        string
	Author      string
	AuthorEmail string
	Category    Category
	Secret      bool
	Password    string
	Views       int64
	CreatedAt   time.Time
}

// SecretItem projects the post into the gate's view of it.
func (p Post) SecretItem() authz.SecretItem {
	return authz.SecretItem{
		OwnerIdentity: p.AuthorEmail,
		Secret:        p.Secret,
		Password:      p.Password,
	}
}

// ErrPostNotFound indicates the requested post does not exist.
var ErrPostNotFound = errors.New("content: post not found")

// Repository defines data access for posts. Implementations must expose
// fully-created posts only; a reader never observes a secret post
// without its password.
type Repository interface {
	List(ctx context.Context, category Category) ([]Post, error)
	Get(ctx context.Context, id int64) (Post, error)
	Create(ctx context.Context, post Post) (Post, error)
	IncrementViews(ctx context.Context, id int64) error
}
