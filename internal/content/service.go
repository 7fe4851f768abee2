package content

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/withalice/portal/internal/authz"
)

// ErrUnauthenticated rejects writes from anonymous visitors.
var ErrUnauthenticated = errors.New("content: sign in required")

// Service applies board business rules: creation validation, the secret
// gate on reads, and author masking on listings.
type Service struct {
	repo      Repository
	validator *validator.Validate
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: validator.New()}
}

// CreateInput carries a new post submission. A secret post must carry a
// 4-digit numeric password; the core refuses to create a secret post
// without one instead of guessing a locked-or-open default later.
type CreateInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Category string `json:"category" validate:"required,oneof=notice free info"`
	Secret   bool   `json:"secret"`
	Password string `json:"password" validate:"required_if=Secret true,omitempty,len=4,numeric"`
}

// Create validates and stores a post authored by the principal.
func (s *Service) Create(ctx context.Context, input CreateInput, author *authz.Principal) (Post, error) {
	if author == nil {
		return Post{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(input); err != nil {
		return Post{}, err
	}
	post := Post{
		Title:       input.Title,
		Body:        input.Body,
		Author:      author.Nickname,
		AuthorEmail: author.Email,
		Category:    Category(input.Category),
		Secret:      input.Secret,
		CreatedAt:   time.Now(),
	}
	if input.Secret {
		post.Password = input.Password
	}
	return s.repo.Create(ctx, post)
}

// Summary is a board row. Secret rows shown to a non-owner, non-admin
// viewer carry a masked author name and no body.
type Summary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Category  Category  `json:"category"`
	Secret    bool      `json:"secret"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"createdAt"`
}

// Detail is the full post as revealed after the gate passes.
type Detail struct {
	Summary
	Body string `json:"body"`
}

// List returns board rows for the viewer, masking authors of secret
// posts the viewer does not own and cannot bypass.
func (s *Service) List(ctx context.Context, category Category, viewer *authz.Principal) ([]Summary, error) {
	posts, err := s.repo.List(ctx, category)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.summarize(p, viewer))
	}
	return out, nil
}

// Reveal runs the secret gate for one post. The bool reports whether the
// body may be shown; a denied read still yields the masked summary so
// the UI can render a locked row with a password prompt.
func (s *Service) Reveal(ctx context.Context, id int64, supplied string, viewer *authz.Principal) (Detail, bool, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, false, err
	}
	summary := s.summarize(post, viewer)
	if !authz.CheckSecretAccess(post.SecretItem(), supplied, viewer) {
		return Detail{Summary: summary}, false, nil
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil && !errors.Is(err, ErrPostNotFound) {
		return Detail{}, false, err
	}
	summary.Views++
	summary.Author = post.Author
	return Detail{Summary: summary, Body: post.Body}, true, nil
}

// CheckSecretAccess answers the bare gate question without revealing
// anything, for callers that only need the boolean.
func (s *Service) CheckSecretAccess(ctx context.Context, id int64, supplied string, viewer *authz.Principal) (bool, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return authz.CheckSecretAccess(post.SecretItem(), supplied, viewer), nil
}

func (s *Service) summarize(p Post, viewer *authz.Principal) Summary {
	author := p.Author
	if p.Secret && !authz.CheckSecretAccess(p.SecretItem(), "", viewer) {
		author = authz.MaskNickname(p.Author)
	}
	return Summary{
		ID:        p.ID,
		Title:     p.Title,
		Author:    author,
		Category:  p.Category,
		Secret:    p.Secret,
		Views:     p.Views,
		CreatedAt: p.CreatedAt,
	}
}
