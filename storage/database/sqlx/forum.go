package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/forum"
)

const (
	forumColumns = `id, trail_id, author_id, title, description, locked, post_count, last_post_at, created_at, updated_at`
	postColumns  = `id, forum_id, author_id, parent_id, body, created_at, edited_at`
)

type forumRow struct {
	ID          string      `db:"id"`
	TrailID     null.String `db:"trail_id"`
	AuthorID    string      `db:"author_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Locked      bool        `db:"locked"`
	PostCount   int         `db:"post_count"`
	LastPostAt  null.Time   `db:"last_post_at"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func newForumRow(f forum.Forum) forumRow {
	return forumRow{
		ID:          f.ID,
		TrailID:     null.StringFromPtr(f.TrailID),
		AuthorID:    f.AuthorID,
		Title:       f.Title,
		Description: f.Description,
		Locked:      f.Locked,
		PostCount:   f.PostCount,
		LastPostAt:  null.TimeFromPtr(f.LastPostAt),
		CreatedAt:   f.CreatedAt.UTC(),
		UpdatedAt:   f.UpdatedAt.UTC(),
	}
}

func (r forumRow) forum() forum.Forum {
	return forum.Forum{
		ID:          r.ID,
		TrailID:     r.TrailID.Ptr(),
		AuthorID:    r.AuthorID,
		Title:       r.Title,
		Description: r.Description,
		Locked:      r.Locked,
		PostCount:   r.PostCount,
		LastPostAt:  r.LastPostAt.Ptr(),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type postRow struct {
	ID        string      `db:"id"`
	ForumID   string      `db:"forum_id"`
	AuthorID  string      `db:"author_id"`
	ParentID  null.String `db:"parent_id"`
	Body      string      `db:"body"`
	CreatedAt time.Time   `db:"created_at"`
	EditedAt  null.Time   `db:"edited_at"`
}

func newPostRow(p forum.Post) postRow {
	return postRow{
		ID:        p.ID,
		ForumID:   p.ForumID,
		AuthorID:  p.AuthorID,
		ParentID:  null.StringFromPtr(p.ParentID),
		Body:      p.Body,
		CreatedAt: p.CreatedAt.UTC(),
		EditedAt:  null.TimeFromPtr(p.EditedAt),
	}
}

func (r postRow) post() forum.Post {
	return forum.Post{
		ID:        r.ID,
		ForumID:   r.ForumID,
		AuthorID:  r.AuthorID,
		ParentID:  r.ParentID.Ptr(),
		Body:      r.Body,
		CreatedAt: r.CreatedAt.UTC(),
		EditedAt:  r.EditedAt.Ptr(),
	}
}

type forumRepository struct {
	db *sqlx.DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *sqlx.DB) *forumRepository {
	return &forumRepository{db: db}
}

func (repo forumRepository) CreateForum(ctx context.Context, f forum.Forum) (forum.Forum, error) {
	q := `INSERT INTO forum (` + forumColumns + `)
		VALUES (:id, :trail_id, :author_id, :title, :description, :locked, :post_count, :last_post_at, :created_at, :updated_at)`
	row := newForumRow(f)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return forum.Forum{}, errors.Wrap(err, "inserting forum")
	}
	return row.forum(), nil
}

func (repo forumRepository) QueryForums(ctx context.Context, filter forum.QueryFilter) ([]forum.Forum, error) {
	var w where
	if filter.TrailID != "" {
		w.add("trail_id = ?", filter.TrailID)
	}
	if filter.Search != "" {
		val := like(filter.Search)
		w.add("(title ILIKE ? OR description ILIKE ?)", val, val)
	}
	q, args := w.build(repo.db, `SELECT `+forumColumns+` FROM forum`, "ORDER BY COALESCE(last_post_at, created_at) DESC, id")

	var rows []forumRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying forums")
	}
	forums := make([]forum.Forum, 0, len(rows))
	for _, r := range rows {
		forums = append(forums, r.forum())
	}
	return forums, nil
}

func (repo forumRepository) GetForum(ctx context.Context, id string) (forum.Forum, error) {
	var row forumRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+forumColumns+` FROM forum WHERE id = $1`, id); err != nil {
		return forum.Forum{}, trapNoRowsErr(err, forum.ErrNotFound, "getting forum")
	}
	return row.forum(), nil
}

// UpdateForum leaves the post counters untouched.
func (repo forumRepository) UpdateForum(ctx context.Context, f forum.Forum) (forum.Forum, error) {
	q := `UPDATE forum SET title = $2, description = $3, locked = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + forumColumns
	var row forumRow
	if err := repo.db.GetContext(ctx, &row, q, f.ID, f.Title, f.Description, f.Locked, f.UpdatedAt.UTC()); err != nil {
		return forum.Forum{}, trapNoRowsErr(err, forum.ErrNotFound, "updating forum")
	}
	return row.forum(), nil
}

func (repo forumRepository) DeleteForum(ctx context.Context, id string) error {
	if err := execOne(repo.db.ExecContext(ctx, `DELETE FROM forum WHERE id = $1`, id)); err != nil {
		return trapNoRowsErr(err, forum.ErrNotFound, "deleting forum")
	}
	return nil
}

func (repo forumRepository) CreatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	row := newPostRow(p)
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE forum SET post_count = post_count + 1, last_post_at = $2 WHERE id = $1`
		if err := execOne(tx.ExecContext(ctx, q, row.ForumID, row.CreatedAt)); err != nil {
			return trapNoRowsErr(err, forum.ErrNotFound, "bumping forum")
		}
		q = `INSERT INTO post (` + postColumns + `) VALUES (:id, :forum_id, :author_id, :parent_id, :body, :created_at, :edited_at)`
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return errors.Wrap(err, "inserting post")
		}
		return nil
	})
	if err != nil {
		return forum.Post{}, err
	}
	return row.post(), nil
}

func (repo forumRepository) QueryPosts(ctx context.Context, forumID string, page core.Page) ([]forum.Post, error) {
	q := `SELECT ` + postColumns + ` FROM post WHERE forum_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`
	var rows []postRow
	if err := repo.db.SelectContext(ctx, &rows, q, forumID, page.Limit, page.Offset); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	posts := make([]forum.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.post())
	}
	return posts, nil
}

func (repo forumRepository) GetPost(ctx context.Context, id string) (forum.Post, error) {
	var row postRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+postColumns+` FROM post WHERE id = $1`, id); err != nil {
		return forum.Post{}, trapNoRowsErr(err, forum.ErrPostNotFound, "getting post")
	}
	return row.post(), nil
}

func (repo forumRepository) UpdatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	row := newPostRow(p)
	q := `UPDATE post SET body = :body, edited_at = :edited_at WHERE id = :id`
	if err := execOne(repo.db.NamedExecContext(ctx, q, row)); err != nil {
		return forum.Post{}, trapNoRowsErr(err, forum.ErrPostNotFound, "updating post")
	}
	return row.post(), nil
}

// DeletePost counts the post and its replies before the cascading delete.
func (repo forumRepository) DeletePost(ctx context.Context, id string) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var forumID string
		if err := tx.GetContext(ctx, &forumID, `SELECT forum_id FROM post WHERE id = $1 FOR UPDATE`, id); err != nil {
			return trapNoRowsErr(err, forum.ErrPostNotFound, "getting post")
		}

		var n int
		q := `WITH RECURSIVE doomed AS (
				SELECT id FROM post WHERE id = $1
				UNION ALL
				SELECT p.id FROM post p JOIN doomed d ON p.parent_id = d.id
			)
			SELECT COUNT(*) FROM doomed`
		if err := tx.GetContext(ctx, &n, q, id); err != nil {
			return errors.Wrap(err, "counting replies")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post WHERE id = $1`, id); err != nil {
			return errors.Wrap(err, "deleting post")
		}
		q = `UPDATE forum SET post_count = GREATEST(post_count - $2, 0) WHERE id = $1`
		if _, err := tx.ExecContext(ctx, q, forumID, n); err != nil {
			return errors.Wrap(err, "decrementing forum post count")
		}
		return nil
	})
}
