package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/ai"
)

const essayGradeColumns = `id, user_id, topic, essay, result, created_at`

type essayGradeRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Topic     string         `db:"topic"`
	Essay     string         `db:"essay"`
	Result    types.JSONText `db:"result"`
	CreatedAt time.Time      `db:"created_at"`
}

func (row essayGradeRow) grade() (ai.EssayGrade, error) {
	eg := ai.EssayGrade{
		ID:        row.ID,
		UserID:    row.UserID,
		Topic:     row.Topic,
		Essay:     row.Essay,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if err := row.Result.Unmarshal(&eg.Result); err != nil {
		return ai.EssayGrade{}, errors.Wrapf(err, "decoding result of essay grade %s", row.ID)
	}
	return eg, nil
}

type essayRepository struct {
	db *sqlx.DB
}

var _ ai.Repository = (*essayRepository)(nil) // interface compliance check

func NewEssayRepository(db *sqlx.DB) *essayRepository {
	return &essayRepository{db: db}
}

func (repo essayRepository) CreateEssayGrade(ctx context.Context, eg ai.EssayGrade) (ai.EssayGrade, error) {
	res, err := json.Marshal(eg.Result)
	if err != nil {
		return ai.EssayGrade{}, errors.Wrap(err, "encoding essay result")
	}
	row := essayGradeRow{
		ID:        eg.ID,
		UserID:    eg.UserID,
		Topic:     eg.Topic,
		Essay:     eg.Essay,
		Result:    res,
		CreatedAt: eg.CreatedAt.UTC(),
	}
	q := `INSERT INTO essay_grade (` + essayGradeColumns + `) VALUES (:id, :user_id, :topic, :essay, :result, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return ai.EssayGrade{}, errors.Wrap(err, "inserting essay grade")
	}
	return row.grade()
}

func (repo essayRepository) QueryEssayGrades(ctx context.Context, userID string) ([]ai.EssayGrade, error) {
	var rows []essayGradeRow
	q := `SELECT ` + essayGradeColumns + ` FROM essay_grade WHERE user_id = $1 ORDER BY created_at DESC, id`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying essay grades")
	}
	grades := make([]ai.EssayGrade, 0, len(rows))
	for _, r := range rows {
		eg, err := r.grade()
		if err != nil {
			return nil, err
		}
		grades = append(grades, eg)
	}
	return grades, nil
}

func (repo essayRepository) GetEssayGrade(ctx context.Context, id string) (ai.EssayGrade, error) {
	var row essayGradeRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+essayGradeColumns+` FROM essay_grade WHERE id = $1`, id); err != nil {
		return ai.EssayGrade{}, trapNoRowsErr(err, ai.ErrEssayGradeNotFound, "getting essay grade")
	}
	return row.grade()
}
