package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/ai"
)

type essayRepository struct {
	db *DB
}

var _ ai.Repository = (*essayRepository)(nil) // interface compliance check

func NewEssayRepository(db *DB) *essayRepository {
	return &essayRepository{db: db}
}

func (repo *essayRepository) CreateEssayGrade(_ context.Context, eg ai.EssayGrade) (ai.EssayGrade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.essays[eg.ID] = eg
	return eg, nil
}

func (repo *essayRepository) QueryEssayGrades(_ context.Context, userID string) ([]ai.EssayGrade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]ai.EssayGrade, 0)
	for _, eg := range repo.db.essays {
		if eg.UserID == userID {
			grades = append(grades, eg)
		}
	}
	sort.Slice(grades, func(i, j int) bool {
		if !grades[i].CreatedAt.Equal(grades[j].CreatedAt) {
			return grades[i].CreatedAt.After(grades[j].CreatedAt)
		}
		return grades[i].ID < grades[j].ID
	})
	return grades, nil
}

func (repo *essayRepository) GetEssayGrade(_ context.Context, id string) (ai.EssayGrade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if eg, ok := repo.db.essays[id]; ok {
		return eg, nil
	}
	return ai.EssayGrade{}, ai.ErrEssayGradeNotFound
}
