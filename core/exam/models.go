package exam

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Question is a multiple choice question of the question bank.
type Question struct {
	ID        string    `json:"id" db:"id"`
	TrailID   *string   `json:"trail_id" db:"trail_id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Statement string    `json:"statement" db:"statement"`
	Options   []Option  `json:"options" db:"-"`
	Answer    string    `json:"answer,omitempty" db:"answer"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WithoutAnswer hides the answer of the question.
func (q Question) WithoutAnswer() Question {
	q.Answer = ""
	return q
}

type ParseRequest struct {
	Text string `json:"text" validate:"required,max=200000"`
}

func (pr *ParseRequest) Validate(validate *validator.Validate) error { return validate.Struct(pr) }

type ImportRequest struct {
	Text    string `json:"text" validate:"required,max=200000"`
	TrailID string `json:"trail_id" validate:"omitempty,uuid"`
}

func (ir *ImportRequest) Validate(validate *validator.Validate) error {
	ir.TrailID = core.CleanString(ir.TrailID)
	return validate.Struct(ir)
}

type ImportResult struct {
	Imported []Question `json:"imported"`
	Errors   []string   `json:"errors"`
}

type QueryFilter struct {
	TrailID  string `query:"trail"`
	AuthorID string `query:"author"`
	Search   string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.TrailID = core.CleanString(qf.TrailID)
	qf.AuthorID = core.CleanString(qf.AuthorID)
	qf.Search = core.CleanString(qf.Search)
}

// GradeRequest maps question ids to the chosen option letters.
type GradeRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1,max=500,dive,keys,uuid,endkeys,required"`
}

func (gr *GradeRequest) Validate(validate *validator.Validate) error { return validate.Struct(gr) }

type QuestionResult struct {
	QuestionID string `json:"question_id"`
	Given      string `json:"given"`
	Answer     string `json:"answer,omitempty"`
	Correct    bool   `json:"correct"`
}

type GradeResult struct {
	Score      int              `json:"score"`
	Total      int              `json:"total"`
	Percentage float64          `json:"percentage"`
	Results    []QuestionResult `json:"results"`
}
