package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/library"
)

const resourceColumns = `id, title, description, subject, kind, url, tags, uploaded_by, embedding, created_at, updated_at`

type resourceRow struct {
	ID          string          `db:"id"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	Subject     string          `db:"subject"`
	Kind        string          `db:"kind"`
	URL         string          `db:"url"`
	Tags        pq.StringArray  `db:"tags"`
	UploadedBy  string          `db:"uploaded_by"`
	Embedding   pq.Float32Array `db:"embedding"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func newResourceRow(r library.Resource) resourceRow {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return resourceRow{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Subject:     r.Subject,
		Kind:        r.Kind,
		URL:         r.URL,
		Tags:        tags,
		UploadedBy:  r.UploadedBy,
		Embedding:   r.Embedding,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (row resourceRow) resource() library.Resource {
	tags := []string(row.Tags)
	if tags == nil {
		tags = []string{}
	}
	return library.Resource{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Subject:     row.Subject,
		Kind:        row.Kind,
		URL:         row.URL,
		Tags:        tags,
		UploadedBy:  row.UploadedBy,
		Embedding:   row.Embedding,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type libraryRepository struct {
	db *sqlx.DB
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(db *sqlx.DB) *libraryRepository {
	return &libraryRepository{db: db}
}

func (repo libraryRepository) CreateResource(ctx context.Context, r library.Resource) (library.Resource, error) {
	q := `INSERT INTO library_resource (` + resourceColumns + `)
		VALUES (:id, :title, :description, :subject, :kind, :url, :tags, :uploaded_by, :embedding, :created_at, :updated_at)`
	row := newResourceRow(r)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return library.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return row.resource(), nil
}

func (repo libraryRepository) selectResources(ctx context.Context, q string, args ...interface{}) ([]library.Resource, error) {
	var rows []resourceRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	resources := make([]library.Resource, 0, len(rows))
	for _, r := range rows {
		resources = append(resources, r.resource())
	}
	return resources, nil
}

func (repo libraryRepository) QueryResources(ctx context.Context, filter library.QueryFilter) ([]library.Resource, error) {
	var w where
	if filter.Subject != "" {
		w.add("subject ILIKE ?", filter.Subject)
	}
	if filter.Kind != "" {
		w.add("kind = ?", filter.Kind)
	}
	if filter.Tag != "" {
		w.add("? = ANY(tags)", filter.Tag)
	}
	if filter.Search != "" {
		val := like(filter.Search)
		w.add("(title ILIKE ? OR description ILIKE ?)", val, val)
	}
	q, args := w.build(repo.db, `SELECT `+resourceColumns+` FROM library_resource`, "ORDER BY created_at DESC, id")
	return repo.selectResources(ctx, q, args...)
}

func (repo libraryRepository) QueryIndexedResources(ctx context.Context) ([]library.Resource, error) {
	q := `SELECT ` + resourceColumns + ` FROM library_resource
		WHERE embedding IS NOT NULL AND cardinality(embedding) > 0`
	return repo.selectResources(ctx, q)
}

func (repo libraryRepository) GetResource(ctx context.Context, id string) (library.Resource, error) {
	var row resourceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+resourceColumns+` FROM library_resource WHERE id = $1`, id); err != nil {
		return library.Resource{}, trapNoRowsErr(err, library.ErrNotFound, "getting resource")
	}
	return row.resource(), nil
}

func (repo libraryRepository) UpdateResource(ctx context.Context, r library.Resource) (library.Resource, error) {
	q := `UPDATE library_resource SET title = :title, description = :description, subject = :subject, kind = :kind,
		url = :url, tags = :tags, embedding = :embedding, updated_at = :updated_at
		WHERE id = :id`
	row := newResourceRow(r)
	if err := execOne(repo.db.NamedExecContext(ctx, q, row)); err != nil {
		return library.Resource{}, trapNoRowsErr(err, library.ErrNotFound, "updating resource")
	}
	return row.resource(), nil
}

func (repo libraryRepository) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	q := `UPDATE library_resource SET embedding = $2 WHERE id = $1`
	if err := execOne(repo.db.ExecContext(ctx, q, id, pq.Float32Array(embedding))); err != nil {
		return trapNoRowsErr(err, library.ErrNotFound, "saving embedding")
	}
	return nil
}

func (repo libraryRepository) DeleteResource(ctx context.Context, id string) error {
	if err := execOne(repo.db.ExecContext(ctx, `DELETE FROM library_resource WHERE id = $1`, id)); err != nil {
		return trapNoRowsErr(err, library.ErrNotFound, "deleting resource")
	}
	return nil
}
