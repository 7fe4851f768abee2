package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLRepository is the PostgreSQL-backed Repository for durable
// deployments. Expected schema:
//
//	CREATE TABLE content_posts (
//	    id           BIGSERIAL PRIMARY KEY,
//	    title        TEXT NOT NULL,
//	    body         TEXT NOT NULL,
//	    author       TEXT NOT NULL,
//	    author_email TEXT NOT NULL DEFAULT '',
//	    category     TEXT NOT NULL,
//	    is_secret    BOOLEAN NOT NULL DEFAULT FALSE,
//	    password     TEXT NOT NULL DEFAULT '',
//	    views        BIGINT NOT NULL DEFAULT 0,
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewSQLRepository constructs a SQLRepository backed by the provided pool.
func NewSQLRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

const postColumns = `id, title, body, author, author_email, category, is_secret, password, views, created_at`

// List returns posts newest-first, optionally filtered by category.
func (r *SQLRepository) List(ctx context.Context, category Category) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM content_posts ORDER BY id DESC`
	args := []any{}
	if category != "" {
		query = `SELECT ` + postColumns + ` FROM content_posts WHERE category = $1 ORDER BY id DESC`
		args = append(args, string(category))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("content: list posts: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("content: iterate posts: %w", err)
	}
	return out, nil
}

// Get returns the post by id.
func (r *SQLRepository) Get(ctx context.Context, id int64) (Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM content_posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, err
	}
	return p, nil
}

// Create inserts the post and returns it with id and timestamp assigned.
func (r *SQLRepository) Create(ctx context.Context, post Post) (Post, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO content_posts (title, body, author, author_email, category, is_secret, password, views)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		post.Title, post.Body, post.Author, post.AuthorEmail,
		string(post.Category), post.Secret, post.Password, post.Views,
	)
	if err := row.Scan(&post.ID, &post.CreatedAt); err != nil {
		return Post{}, fmt.Errorf("content: create post: %w", err)
	}
	return post, nil
}

// IncrementViews bumps the view counter.
func (r *SQLRepository) IncrementViews(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE content_posts SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("content: increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	var category string
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Author, &p.AuthorEmail,
		&category, &p.Secret, &p.Password, &p.Views, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, err
		}
		return Post{}, fmt.Errorf("content: scan post: %w", err)
	}
	p.Category = Category(category)
	return p, nil
}
