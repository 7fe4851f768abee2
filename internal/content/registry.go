package content

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Registry is the in-memory Repository used when the portal runs without
// a database, mirroring the single-process scope of the original
// dashboard. Creation happens entirely under the lock, so readers see
// either the finished post or nothing.
type Registry struct {
	mu     sync.RWMutex
	posts  map[int64]Post
	nextID int64
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{posts: make(map[int64]Post), nextID: 1}
}

// NewSeededRegistry constructs a Registry preloaded with the demo board
// content used in development.
func NewSeededRegistry() *Registry {
	r := NewRegistry()
	seed := []Post{
		{
			Title:       "[Must read] Community guidelines",
			Body:        "No abuse, no spam, no off-topic selling threads.",
			Author:      "Master",
			AuthorEmail: "admin@withalice.team",
			Category:    CategoryNotice,
			Views:       1205,
		},
		{
			Title:       "2024 FBA fee changes, summarized",
			Body:        "Full breakdown of the fulfillment fee revisions.",
			Author:      "Master",
			AuthorEmail: "admin@withalice.team",
			Category:    CategoryInfo,
			Views:       540,
		},
		{
			Title:       "New seller question",
			Body:        "My account approval is stuck, anyone seen this?",
			Author:      "Seller123",
			AuthorEmail: "user1@test.com",
			Category:    CategoryFree,
			Views:       12,
		},
	}
	ctx := context.Background()
	for _, p := range seed {
		p.CreatedAt = time.Now()
		_, _ = r.Create(ctx, p)
	}
	return r
}

// List returns posts newest-first, optionally filtered by category.
func (r *Registry) List(ctx context.Context, category Category) ([]Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Post, 0, len(r.posts))
	for _, p := range r.posts {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Get returns the post by id.
func (r *Registry) Get(ctx context.Context, id int64) (Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return p, nil
}

// Create stores the post and assigns its id.
func (r *Registry) Create(ctx context.Context, post Post) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = r.nextID
	r.nextID++
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	r.posts[post.ID] = post
	return post, nil
}

// IncrementViews bumps the view counter.
func (r *Registry) IncrementViews(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	p.Views++
	r.posts[id] = p
	return nil
}
