package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/live"
)

const (
	liveColumns     = `id, teacher_id, trail_id, title, description, stream_url, scheduled_at, started_at, ended_at, status, reminder_sent, created_at, updated_at`
	questionColumns = `id, live_id, user_id, body, answered, created_at`
)

type liveRow struct {
	ID           string      `db:"id"`
	TeacherID    string      `db:"teacher_id"`
	TrailID      null.String `db:"trail_id"`
	Title        string      `db:"title"`
	Description  string      `db:"description"`
	StreamURL    string      `db:"stream_url"`
	ScheduledAt  time.Time   `db:"scheduled_at"`
	StartedAt    null.Time   `db:"started_at"`
	EndedAt      null.Time   `db:"ended_at"`
	Status       string      `db:"status"`
	ReminderSent bool        `db:"reminder_sent"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func newLiveRow(l live.Live) liveRow {
	return liveRow{
		ID:           l.ID,
		TeacherID:    l.TeacherID,
		TrailID:      null.StringFromPtr(l.TrailID),
		Title:        l.Title,
		Description:  l.Description,
		StreamURL:    l.StreamURL,
		ScheduledAt:  l.ScheduledAt.UTC(),
		StartedAt:    null.TimeFromPtr(l.StartedAt),
		EndedAt:      null.TimeFromPtr(l.EndedAt),
		Status:       l.Status,
		ReminderSent: l.ReminderSent,
		CreatedAt:    l.CreatedAt.UTC(),
		UpdatedAt:    l.UpdatedAt.UTC(),
	}
}

func (r liveRow) live() live.Live {
	return live.Live{
		ID:           r.ID,
		TeacherID:    r.TeacherID,
		TrailID:      r.TrailID.Ptr(),
		Title:        r.Title,
		Description:  r.Description,
		StreamURL:    r.StreamURL,
		ScheduledAt:  r.ScheduledAt.UTC(),
		StartedAt:    r.StartedAt.Ptr(),
		EndedAt:      r.EndedAt.Ptr(),
		Status:       r.Status,
		ReminderSent: r.ReminderSent,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type liveRepository struct {
	db *sqlx.DB
}

var _ live.Repository = (*liveRepository)(nil) // interface compliance check

func NewLiveRepository(db *sqlx.DB) *liveRepository {
	return &liveRepository{db: db}
}

func (repo liveRepository) CreateLive(ctx context.Context, l live.Live) (live.Live, error) {
	q := `INSERT INTO live (` + liveColumns + `)
		VALUES (:id, :teacher_id, :trail_id, :title, :description, :stream_url, :scheduled_at, :started_at, :ended_at,
			:status, :reminder_sent, :created_at, :updated_at)`
	row := newLiveRow(l)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return live.Live{}, errors.Wrap(err, "inserting live")
	}
	return row.live(), nil
}

func (repo liveRepository) QueryLives(ctx context.Context, filter live.QueryFilter) ([]live.Live, error) {
	var w where
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.TeacherID != "" {
		w.add("teacher_id = ?", filter.TeacherID)
	}
	if filter.TrailID != "" {
		w.add("trail_id = ?", filter.TrailID)
	}
	if !filter.From.IsZero() {
		w.add("scheduled_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		w.add("scheduled_at <= ?", filter.To.UTC())
	}
	q, args := w.build(repo.db, `SELECT `+liveColumns+` FROM live`, "ORDER BY scheduled_at, id")

	var rows []liveRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lives")
	}
	lives := make([]live.Live, 0, len(rows))
	for _, r := range rows {
		lives = append(lives, r.live())
	}
	return lives, nil
}

func (repo liveRepository) GetLive(ctx context.Context, id string) (live.Live, error) {
	var row liveRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+liveColumns+` FROM live WHERE id = $1`, id); err != nil {
		return live.Live{}, trapNoRowsErr(err, live.ErrNotFound, "getting live")
	}
	return row.live(), nil
}

func (repo liveRepository) UpdateLive(ctx context.Context, l live.Live) (live.Live, error) {
	q := `UPDATE live SET title = :title, description = :description, stream_url = :stream_url,
		reminder_sent = CASE WHEN scheduled_at = :scheduled_at THEN reminder_sent ELSE false END,
		scheduled_at = :scheduled_at, updated_at = :updated_at
		WHERE id = :id AND status = 'scheduled'
		RETURNING ` + liveColumns
	return repo.updateReturning(ctx, l.ID, q, newLiveRow(l), "updating live")
}

func (repo liveRepository) TransitionLive(ctx context.Context, l live.Live, from string) (live.Live, error) {
	q := `UPDATE live SET status = :status, started_at = :started_at, ended_at = :ended_at, updated_at = :updated_at
		WHERE id = :id AND status = :from
		RETURNING ` + liveColumns
	arg := struct {
		liveRow
		From string `db:"from"`
	}{newLiveRow(l), from}
	return repo.updateReturning(ctx, l.ID, q, arg, "transitioning live")
}

// updateReturning runs a guarded UPDATE. No row back means the live is gone or its status moved on.
func (repo liveRepository) updateReturning(ctx context.Context, id, q string, arg interface{}, msg string) (live.Live, error) {
	rows, err := repo.db.NamedQueryContext(ctx, q, arg)
	if err != nil {
		return live.Live{}, errors.Wrap(err, msg)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return live.Live{}, errors.Wrap(err, msg)
		}
		if _, err := repo.GetLive(ctx, id); err != nil {
			return live.Live{}, err
		}
		return live.Live{}, live.ErrStatusChanged
	}
	var row liveRow
	if err := rows.StructScan(&row); err != nil {
		return live.Live{}, errors.Wrap(err, msg)
	}
	return row.live(), nil
}

func (repo liveRepository) SetReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	q := `UPDATE live SET reminder_sent = true, updated_at = $2
		WHERE id = $1 AND status = 'scheduled' AND NOT reminder_sent`
	res, err := repo.db.ExecContext(ctx, q, id, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "setting live reminder sent")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "setting live reminder sent")
	}
	return n == 1, nil
}

func (repo liveRepository) CreateQuestion(ctx context.Context, q live.Question) (live.Question, error) {
	query := `INSERT INTO live_question (` + questionColumns + `) VALUES (:id, :live_id, :user_id, :body, :answered, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, q); err != nil {
		return live.Question{}, errors.Wrap(err, "inserting live question")
	}
	return q, nil
}

func (repo liveRepository) QueryQuestions(ctx context.Context, liveID string) ([]live.Question, error) {
	questions := make([]live.Question, 0)
	q := `SELECT ` + questionColumns + ` FROM live_question WHERE live_id = $1 ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &questions, q, liveID); err != nil {
		return nil, errors.Wrap(err, "querying live questions")
	}
	return questions, nil
}

func (repo liveRepository) GetQuestion(ctx context.Context, id string) (live.Question, error) {
	var q live.Question
	if err := repo.db.GetContext(ctx, &q, `SELECT `+questionColumns+` FROM live_question WHERE id = $1`, id); err != nil {
		return live.Question{}, trapNoRowsErr(err, live.ErrQuestionNotFound, "getting live question")
	}
	return q, nil
}

func (repo liveRepository) UpdateQuestion(ctx context.Context, q live.Question) (live.Question, error) {
	query := `UPDATE live_question SET body = :body, answered = :answered WHERE id = :id`
	if err := execOne(repo.db.NamedExecContext(ctx, query, q)); err != nil {
		return live.Question{}, trapNoRowsErr(err, live.ErrQuestionNotFound, "updating live question")
	}
	return q, nil
}
