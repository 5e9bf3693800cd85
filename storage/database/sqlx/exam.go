package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/exam"
)

const examQuestionColumns = `id, trail_id, author_id, statement, options, answer, created_at`

type examQuestionRow struct {
	ID        string         `db:"id"`
	TrailID   null.String    `db:"trail_id"`
	AuthorID  string         `db:"author_id"`
	Statement string         `db:"statement"`
	Options   types.JSONText `db:"options"`
	Answer    string         `db:"answer"`
	CreatedAt time.Time      `db:"created_at"`
}

func newExamQuestionRow(q exam.Question) (examQuestionRow, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return examQuestionRow{}, errors.Wrap(err, "encoding options")
	}
	return examQuestionRow{
		ID:        q.ID,
		TrailID:   null.StringFromPtr(q.TrailID),
		AuthorID:  q.AuthorID,
		Statement: q.Statement,
		Options:   opts,
		Answer:    q.Answer,
		CreatedAt: q.CreatedAt.UTC(),
	}, nil
}

func (row examQuestionRow) question() (exam.Question, error) {
	q := exam.Question{
		ID:        row.ID,
		TrailID:   row.TrailID.Ptr(),
		AuthorID:  row.AuthorID,
		Statement: row.Statement,
		Answer:    row.Answer,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if err := row.Options.Unmarshal(&q.Options); err != nil {
		return exam.Question{}, errors.Wrapf(err, "decoding options of question %s", row.ID)
	}
	return q, nil
}

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) *examRepository {
	return &examRepository{db: db}
}

func (repo examRepository) CreateQuestions(ctx context.Context, questions ...exam.Question) ([]exam.Question, error) {
	rows := make([]examQuestionRow, 0, len(questions))
	for _, q := range questions {
		row, err := newExamQuestionRow(q)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return []exam.Question{}, nil
	}

	q := `INSERT INTO exam_question (` + examQuestionColumns + `)
		VALUES (:id, :trail_id, :author_id, :statement, :options, :answer, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, rows); err != nil {
		return nil, errors.Wrap(err, "inserting questions")
	}
	return questions, nil
}

func (repo examRepository) selectQuestions(ctx context.Context, q string, args ...interface{}) ([]exam.Question, error) {
	var rows []examQuestionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]exam.Question, 0, len(rows))
	for _, r := range rows {
		q, err := r.question()
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (repo examRepository) QueryQuestions(ctx context.Context, filter exam.QueryFilter) ([]exam.Question, error) {
	var w where
	if filter.TrailID != "" {
		w.add("trail_id = ?", filter.TrailID)
	}
	if filter.AuthorID != "" {
		w.add("author_id = ?", filter.AuthorID)
	}
	if filter.Search != "" {
		w.add("statement ILIKE ?", like(filter.Search))
	}
	q, args := w.build(repo.db, `SELECT `+examQuestionColumns+` FROM exam_question`, "ORDER BY created_at, id")
	return repo.selectQuestions(ctx, q, args...)
}

// GetQuestions returns the existing questions among ids, in the order of ids.
func (repo examRepository) GetQuestions(ctx context.Context, ids ...string) ([]exam.Question, error) {
	if len(ids) == 0 {
		return []exam.Question{}, nil
	}
	q := `SELECT ` + examQuestionColumns + ` FROM exam_question
		WHERE id = ANY($1::uuid[])
		ORDER BY array_position($1::uuid[], id)`
	return repo.selectQuestions(ctx, q, pq.Array(ids))
}

func (repo examRepository) DeleteQuestion(ctx context.Context, id string) error {
	if err := execOne(repo.db.ExecContext(ctx, `DELETE FROM exam_question WHERE id = $1`, id)); err != nil {
		return trapNoRowsErr(err, exam.ErrNotFound, "deleting question")
	}
	return nil
}
