package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db}
}

func cloneQuestion(q exam.Question) exam.Question {
	q.TrailID = copyString(q.TrailID)
	if q.Options != nil {
		q.Options = append(make([]exam.Option, 0, len(q.Options)), q.Options...)
	}
	return q
}

func (repo *examRepository) CreateQuestions(_ context.Context, questions ...exam.Question) ([]exam.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, q := range questions {
		repo.db.examQs[q.ID] = cloneQuestion(q)
	}
	return questions, nil
}

func (repo *examRepository) QueryQuestions(_ context.Context, filter exam.QueryFilter) ([]exam.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	questions := make([]exam.Question, 0)
	for _, q := range repo.db.examQs {
		if filter.TrailID != "" && (q.TrailID == nil || *q.TrailID != filter.TrailID) {
			continue
		}
		if filter.AuthorID != "" && q.AuthorID != filter.AuthorID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(q.Statement), search) {
			continue
		}
		questions = append(questions, cloneQuestion(q))
	}
	sort.Slice(questions, func(i, j int) bool {
		if !questions[i].CreatedAt.Equal(questions[j].CreatedAt) {
			return questions[i].CreatedAt.Before(questions[j].CreatedAt)
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

// GetQuestions returns the existing questions among `ids`, in the order of `ids`.
func (repo *examRepository) GetQuestions(_ context.Context, ids ...string) ([]exam.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]exam.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := repo.db.examQs[id]; ok {
			questions = append(questions, cloneQuestion(q))
		}
	}
	return questions, nil
}

func (repo *examRepository) DeleteQuestion(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.examQs[id]; !ok {
		return exam.ErrNotFound
	}
	delete(repo.db.examQs, id)
	return nil
}
