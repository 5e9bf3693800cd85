package ai

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrEssayGradeNotFound = core.NewNotFoundError("essay grade not found")
)

type (
	Repository interface {
		CreateEssayGrade(ctx context.Context, eg EssayGrade) (EssayGrade, error)
		// QueryEssayGrades returns the gradings of a user, newest first.
		QueryEssayGrades(ctx context.Context, userID string) ([]EssayGrade, error)
		GetEssayGrade(ctx context.Context, id string) (EssayGrade, error)
	}

	Service struct {
		repo      Repository
		tutor     *Flow[TutorRequest, TutorAnswer]
		essay     *Flow[EssayRequest, EssayResult]
		questions *Flow[QuestionsRequest, GeneratedQuestions]
		logger    core.Logger
	}
)

func NewService(repo Repository, model Model, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		tutor:     newFlow(tutorFlow, model, conf.AI, logger),
		essay:     newFlow(essayFlow, model, conf.AI, logger),
		questions: newFlow(questionsFlow, model, conf.AI, logger),
		logger:    logger,
	}
}

// Tutor answers a student's question.
func (svc *Service) Tutor(ctx context.Context, tr TutorRequest) TutorAnswer {
	answer, _ := svc.tutor.Run(ctx, tr)
	return answer
}

// GradeEssay grades the essay and stores the grading. Fallback results are not stored.
func (svc *Service) GradeEssay(ctx context.Context, actor user.User, er EssayRequest) (EssayGrading, error) {
	result, ok := svc.essay.Run(ctx, er)
	if !ok {
		return EssayGrading{Result: result, Fallback: true}, nil
	}
	eg, err := svc.repo.CreateEssayGrade(ctx, EssayGrade{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		Topic:     er.Topic,
		Essay:     er.Essay,
		Result:    result,
		CreatedAt: core.NowFunc(),
	})
	if err != nil {
		return EssayGrading{}, errors.Wrap(err, "creating essay grade")
	}
	return EssayGrading{Grade: &eg, Result: result}, nil
}

func (svc *Service) EssayGrades(ctx context.Context, actor user.User) ([]EssayGrade, error) {
	grades, err := svc.repo.QueryEssayGrades(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying essay grades")
	}
	return grades, nil
}

// EssayGrade returns a grading to its author or to the staff.
func (svc *Service) EssayGrade(ctx context.Context, actor user.User, id string) (EssayGrade, error) {
	eg, err := svc.repo.GetEssayGrade(ctx, id)
	if err != nil {
		return EssayGrade{}, err
	}
	if eg.UserID != actor.ID && !actor.IsStaff() {
		return EssayGrade{}, core.ErrPermissionDenied
	}
	return eg, nil
}

// GenerateQuestions drafts exam questions for the staff.
func (svc *Service) GenerateQuestions(ctx context.Context, actor user.User, qr QuestionsRequest) (GeneratedQuestions, error) {
	if !actor.IsStaff() {
		return GeneratedQuestions{}, core.ErrPermissionDenied
	}
	generated, _ := svc.questions.Run(ctx, qr)
	return generated, nil
}
