package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

const (
	trailColumns   = `id, teacher_id, title, description, subject, cover_url, status, created_at, updated_at`
	moduleColumns  = `id, trail_id, title, description, position, created_at, updated_at`
	contentColumns = `id, module_id, title, kind, body, url, duration_minutes, position, status, created_at, updated_at`
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// Trails

func (repo courseRepository) CreateTrail(ctx context.Context, t course.Trail) (course.Trail, error) {
	q := `INSERT INTO trail (` + trailColumns + `)
		VALUES (:id, :teacher_id, :title, :description, :subject, :cover_url, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, t); err != nil {
		return course.Trail{}, errors.Wrap(err, "inserting trail")
	}
	return t, nil
}

func (repo courseRepository) QueryTrails(ctx context.Context, filter course.TrailFilter, ordering []core.DBOrdering) ([]course.Trail, error) {
	var w where
	if filter.TeacherID != "" {
		w.add("teacher_id = ?", filter.TeacherID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Subject != "" {
		w.add("subject ILIKE ?", filter.Subject)
	}
	if filter.Search != "" {
		val := like(filter.Search)
		w.add("(title ILIKE ? OR description ILIKE ?)", val, val)
	}
	if filter.PublishedOnly {
		w.add("status = ?", course.StatusPublished)
	}
	if filter.VisibleTo != "" {
		w.add("(status = ? OR teacher_id = ?)", course.StatusPublished, filter.VisibleTo)
	}
	q, args := w.build(repo.db, `SELECT `+trailColumns+` FROM trail`, "ORDER BY "+core.OrderBy(ordering, "created_at DESC"))

	trails := make([]course.Trail, 0)
	if err := repo.db.SelectContext(ctx, &trails, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying trails")
	}
	return trails, nil
}

func (repo courseRepository) GetTrail(ctx context.Context, id string) (course.Trail, error) {
	var t course.Trail
	if err := repo.db.GetContext(ctx, &t, `SELECT `+trailColumns+` FROM trail WHERE id = $1`, id); err != nil {
		return course.Trail{}, trapNoRowsErr(err, course.ErrTrailNotFound, "getting trail")
	}
	return t, nil
}

func (repo courseRepository) UpdateTrail(ctx context.Context, t course.Trail) (course.Trail, error) {
	q := `UPDATE trail SET title = :title, description = :description, subject = :subject, cover_url = :cover_url,
		status = :status, updated_at = :updated_at
		WHERE id = :id`
	if err := execOne(repo.db.NamedExecContext(ctx, q, t)); err != nil {
		return course.Trail{}, trapNoRowsErr(err, course.ErrTrailNotFound, "updating trail")
	}
	return t, nil
}

// DeleteTrail relies on ON DELETE CASCADE for modules, contents and progress.
func (repo courseRepository) DeleteTrail(ctx context.Context, id string) error {
	if err := execOne(repo.db.ExecContext(ctx, `DELETE FROM trail WHERE id = $1`, id)); err != nil {
		return trapNoRowsErr(err, course.ErrTrailNotFound, "deleting trail")
	}
	return nil
}

// Modules

func (repo courseRepository) CreateModule(ctx context.Context, m course.Module) (course.Module, error) {
	q := `INSERT INTO module (` + moduleColumns + `)
		VALUES (:id, :trail_id, :title, :description, :position, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, m); err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo courseRepository) QueryModules(ctx context.Context, trailID string) ([]course.Module, error) {
	mods := make([]course.Module, 0)
	q := `SELECT ` + moduleColumns + ` FROM module WHERE trail_id = $1 ORDER BY position, created_at`
	if err := repo.db.SelectContext(ctx, &mods, q, trailID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return mods, nil
}

func (repo courseRepository) GetModule(ctx context.Context, id string) (course.Module, error) {
	var m course.Module
	if err := repo.db.GetContext(ctx, &m, `SELECT `+moduleColumns+` FROM module WHERE id = $1`, id); err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "getting module")
	}
	return m, nil
}

func (repo courseRepository) UpdateModule(ctx context.Context, m course.Module) (course.Module, error) {
	q := `UPDATE module SET title = :title, description = :description, updated_at = :updated_at WHERE id = :id`
	if err := execOne(repo.db.NamedExecContext(ctx, q, m)); err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "updating module")
	}
	return m, nil
}

func (repo courseRepository) DeleteModule(ctx context.Context, id string) error {
	if err := execOne(repo.db.ExecContext(ctx, `DELETE FROM module WHERE id = $1`, id)); err != nil {
		return trapNoRowsErr(err, course.ErrModuleNotFound, "deleting module")
	}
	return nil
}

func (repo courseRepository) SetModulePositions(ctx context.Context, trailID string, ids []string) error {
	return setPositions(ctx, repo.db, `UPDATE module SET position = $1 WHERE id = $2 AND trail_id = $3`, trailID, ids, course.ErrModuleNotFound)
}

// Contents

func (repo courseRepository) CreateContent(ctx context.Context, c course.Content) (course.Content, error) {
	q := `INSERT INTO content (` + contentColumns + `)
		VALUES (:id, :module_id, :title, :kind, :body, :url, :duration_minutes, :position, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, c); err != nil {
		return course.Content{}, errors.Wrap(err, "inserting content")
	}
	return c, nil
}

// QueryContents orders contents by the order of `moduleIDs`, then by position.
func (repo courseRepository) QueryContents(ctx context.Context, moduleIDs ...string) ([]course.Content, error) {
	contents := make([]course.Content, 0)
	if len(moduleIDs) == 0 {
		return contents, nil
	}
	q := `SELECT ` + contentColumns + ` FROM content WHERE module_id = ANY($1)
		ORDER BY array_position($1::uuid[], module_id), position, created_at`
	if err := repo.db.SelectContext(ctx, &contents, q, pq.Array(moduleIDs)); err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	return contents, nil
}

func (repo courseRepository) GetContent(ctx context.Context, id string) (course.Content, error) {
	var c course.Content
	if err := repo.db.GetContext(ctx, &c, `SELECT `+contentColumns+` FROM content WHERE id = $1`, id); err != nil {
		return course.Content{}, trapNoRowsErr(err, course.ErrContentNotFound, "getting content")
	}
	return c, nil
}

func (repo courseRepository) UpdateContent(ctx context.Context, c course.Content) (course.Content, error) {
	q := `UPDATE content SET title = :title, body = :body, url = :url, duration_minutes = :duration_minutes,
		status = :status, updated_at = :updated_at
		WHERE id = :id`
	if err := execOne(repo.db.NamedExecContext(ctx, q, c)); err != nil {
		return course.Content{}, trapNoRowsErr(err, course.ErrContentNotFound, "updating content")
	}
	return c, nil
}

func (repo courseRepository) DeleteContent(ctx context.Context, id string) error {
	if err := execOne(repo.db.ExecContext(ctx, `DELETE FROM content WHERE id = $1`, id)); err != nil {
		return trapNoRowsErr(err, course.ErrContentNotFound, "deleting content")
	}
	return nil
}

func (repo courseRepository) SetContentPositions(ctx context.Context, moduleID string, ids []string) error {
	return setPositions(ctx, repo.db, `UPDATE content SET position = $1 WHERE id = $2 AND module_id = $3`, moduleID, ids, course.ErrContentNotFound)
}

func setPositions(ctx context.Context, db *sqlx.DB, q, parentID string, ids []string, notFound error) error {
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, q)
		if err != nil {
			return errors.Wrap(err, "preparing statement")
		}
		defer func() { _ = stmt.Close() }()

		for pos, id := range ids {
			if err := execOne(stmt.ExecContext(ctx, pos, id, parentID)); err != nil {
				return trapNoRowsErr(err, notFound, "setting position")
			}
		}
		return nil
	})
}

// Progress

func (repo courseRepository) SaveProgress(ctx context.Context, p course.Progress) (course.Progress, error) {
	q := `INSERT INTO progress (user_id, content_id, completed_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, content_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, content_id, completed_at`
	var saved course.Progress
	if err := repo.db.GetContext(ctx, &saved, q, p.UserID, p.ContentID, p.CompletedAt); err != nil {
		return course.Progress{}, errors.Wrap(err, "saving progress")
	}
	return saved, nil
}

func (repo courseRepository) QueryProgress(ctx context.Context, userID string, contentIDs ...string) ([]course.Progress, error) {
	progress := make([]course.Progress, 0)
	if len(contentIDs) == 0 {
		return progress, nil
	}
	q := `SELECT user_id, content_id, completed_at FROM progress WHERE user_id = $1 AND content_id = ANY($2)`
	if err := repo.db.SelectContext(ctx, &progress, q, userID, pq.Array(contentIDs)); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	return progress, nil
}
