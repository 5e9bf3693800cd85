package exam

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("question not found")

	errNoValidQuestion = "no valid question found"
)

type (
	Repository interface {
		CreateQuestions(ctx context.Context, questions ...Question) ([]Question, error)
		// QueryQuestions returns the questions matching filter, oldest first.
		QueryQuestions(ctx context.Context, filter QueryFilter) ([]Question, error)
		GetQuestions(ctx context.Context, ids ...string) ([]Question, error)
		DeleteQuestion(ctx context.Context, id string) error
	}

	// TrailFinder finds the trail imported questions are attached to.
	TrailFinder interface {
		GetTrail(ctx context.Context, id string) (course.Trail, error)
	}

	Service struct {
		repo   Repository
		trails TrailFinder
		logger core.Logger
	}
)

func NewService(repo Repository, trails TrailFinder, logger core.Logger) *Service {
	return &Service{repo: repo, trails: trails, logger: logger}
}

// Parse is a dry run of Import.
func (svc *Service) Parse(text string) ParseResult {
	return ParseExamText(text)
}

// Import stores the valid questions found in the text and returns them with the parsing errors.
func (svc *Service) Import(ctx context.Context, actor user.User, ir ImportRequest) (ImportResult, error) {
	if !actor.IsStaff() {
		return ImportResult{}, core.ErrPermissionDenied
	}
	if ir.TrailID != "" {
		t, err := svc.trails.GetTrail(ctx, ir.TrailID)
		if err != nil {
			if core.IsNotFound(err) {
				return ImportResult{}, core.NewFieldError("trail_id", err.Error())
			}
			return ImportResult{}, errors.Wrap(err, "finding trail")
		}
		if !actor.IsAdmin() && t.TeacherID != actor.ID {
			return ImportResult{}, core.ErrPermissionDenied
		}
	}
	parsed := ParseExamText(ir.Text)
	if len(parsed.Questions) == 0 {
		if len(parsed.Errors) == 0 {
			return ImportResult{}, core.NewFieldError("text", errNoValidQuestion)
		}
		return ImportResult{Imported: []Question{}, Errors: parsed.Errors}, nil
	}

	now := core.NowFunc()
	questions := make([]Question, 0, len(parsed.Questions))
	for _, pq := range parsed.Questions {
		q := Question{
			ID:        uuid.New().String(),
			AuthorID:  actor.ID,
			Statement: pq.Statement,
			Options:   pq.Options,
			Answer:    pq.Answer,
			CreatedAt: now,
		}
		if ir.TrailID != "" {
			q.TrailID = &ir.TrailID
		}
		questions = append(questions, q)
	}
	imported, err := svc.repo.CreateQuestions(ctx, questions...)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "creating questions")
	}
	return ImportResult{Imported: imported, Errors: parsed.Errors}, nil
}

// List returns the questions of the bank. Answers are only shown to staff.
func (svc *Service) List(ctx context.Context, actor user.User, filter QueryFilter) ([]Question, error) {
	filter.Clean()
	questions, err := svc.repo.QueryQuestions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	if !actor.IsStaff() {
		for i := range questions {
			questions[i] = questions[i].WithoutAnswer()
		}
	}
	return questions, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	questions, err := svc.repo.GetQuestions(ctx, id)
	if err != nil {
		return errors.Wrap(err, "finding question")
	}
	if len(questions) == 0 {
		return ErrNotFound
	}
	if !actor.IsAdmin() && questions[0].AuthorID != actor.ID {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteQuestion(ctx, id)
}

// Grade scores the answers given to questions of the bank. Like List, it shows the right answers to staff only.
func (svc *Service) Grade(ctx context.Context, actor user.User, gr GradeRequest) (GradeResult, error) {
	ids := make([]string, 0, len(gr.Answers))
	for id := range gr.Answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	questions, err := svc.repo.GetQuestions(ctx, ids...)
	if err != nil {
		return GradeResult{}, errors.Wrap(err, "finding questions")
	}
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	res := GradeResult{Total: len(ids), Results: make([]QuestionResult, 0, len(ids))}
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return GradeResult{}, core.NewFieldError("answers", "question "+id+" not found")
		}
		given := strings.ToUpper(core.CleanString(gr.Answers[id]))
		qr := QuestionResult{QuestionID: id, Given: given, Correct: given == q.Answer}
		if actor.IsStaff() {
			qr.Answer = q.Answer
		}
		if qr.Correct {
			res.Score++
		}
		res.Results = append(res.Results, qr)
	}
	if res.Total > 0 {
		res.Percentage = math.Round(float64(res.Score)*10000/float64(res.Total)) / 100
	}
	return res, nil
}
