package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core/live"
)

type liveRepository struct {
	db *DB
}

var _ live.Repository = (*liveRepository)(nil) // interface compliance check

func NewLiveRepository(db *DB) *liveRepository {
	return &liveRepository{db: db}
}

func cloneLive(l live.Live) live.Live {
	l.TrailID = copyString(l.TrailID)
	if l.StartedAt != nil {
		t := *l.StartedAt
		l.StartedAt = &t
	}
	if l.EndedAt != nil {
		t := *l.EndedAt
		l.EndedAt = &t
	}
	return l
}

func (repo *liveRepository) CreateLive(_ context.Context, l live.Live) (live.Live, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.lives[l.ID] = cloneLive(l)
	return l, nil
}

func matchLive(l live.Live, filter live.QueryFilter) bool {
	if filter.Status != "" && l.Status != filter.Status {
		return false
	}
	if filter.TeacherID != "" && l.TeacherID != filter.TeacherID {
		return false
	}
	if filter.TrailID != "" && (l.TrailID == nil || *l.TrailID != filter.TrailID) {
		return false
	}
	if !filter.From.IsZero() && l.ScheduledAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && l.ScheduledAt.After(filter.To) {
		return false
	}
	return true
}

func (repo *liveRepository) QueryLives(_ context.Context, filter live.QueryFilter) ([]live.Live, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lives := make([]live.Live, 0)
	for _, l := range repo.db.lives {
		if matchLive(l, filter) {
			lives = append(lives, cloneLive(l))
		}
	}
	sort.Slice(lives, func(i, j int) bool {
		if !lives[i].ScheduledAt.Equal(lives[j].ScheduledAt) {
			return lives[i].ScheduledAt.Before(lives[j].ScheduledAt)
		}
		return lives[i].ID < lives[j].ID
	})
	return lives, nil
}

func (repo *liveRepository) GetLive(_ context.Context, id string) (live.Live, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if l, ok := repo.db.lives[id]; ok {
		return cloneLive(l), nil
	}
	return live.Live{}, live.ErrNotFound
}

func (repo *liveRepository) UpdateLive(_ context.Context, l live.Live) (live.Live, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	stored, ok := repo.db.lives[l.ID]
	if !ok {
		return live.Live{}, live.ErrNotFound
	}
	if stored.Status != live.StatusScheduled {
		return live.Live{}, live.ErrStatusChanged
	}
	if !stored.ScheduledAt.Equal(l.ScheduledAt) {
		stored.ReminderSent = false
	}
	stored.Title = l.Title
	stored.Description = l.Description
	stored.StreamURL = l.StreamURL
	stored.ScheduledAt = l.ScheduledAt
	stored.UpdatedAt = l.UpdatedAt
	repo.db.lives[l.ID] = stored
	return cloneLive(stored), nil
}

func (repo *liveRepository) TransitionLive(_ context.Context, l live.Live, from string) (live.Live, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	stored, ok := repo.db.lives[l.ID]
	if !ok {
		return live.Live{}, live.ErrNotFound
	}
	if stored.Status != from {
		return live.Live{}, live.ErrStatusChanged
	}
	stored.Status = l.Status
	stored.StartedAt = l.StartedAt
	stored.EndedAt = l.EndedAt
	stored.UpdatedAt = l.UpdatedAt
	repo.db.lives[l.ID] = cloneLive(stored)
	return cloneLive(stored), nil
}

func (repo *liveRepository) SetReminderSent(_ context.Context, id string, at time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	stored, ok := repo.db.lives[id]
	if !ok || stored.Status != live.StatusScheduled || stored.ReminderSent {
		return false, nil
	}
	stored.ReminderSent = true
	stored.UpdatedAt = at
	repo.db.lives[id] = stored
	return true, nil
}

func (repo *liveRepository) CreateQuestion(_ context.Context, q live.Question) (live.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.lives[q.LiveID]; !ok {
		return live.Question{}, live.ErrNotFound
	}
	repo.db.questions[q.ID] = q
	return q, nil
}

func (repo *liveRepository) QueryQuestions(_ context.Context, liveID string) ([]live.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]live.Question, 0)
	for _, q := range repo.db.questions {
		if q.LiveID == liveID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if !questions[i].CreatedAt.Equal(questions[j].CreatedAt) {
			return questions[i].CreatedAt.Before(questions[j].CreatedAt)
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (repo *liveRepository) GetQuestion(_ context.Context, id string) (live.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if q, ok := repo.db.questions[id]; ok {
		return q, nil
	}
	return live.Question{}, live.ErrQuestionNotFound
}

func (repo *liveRepository) UpdateQuestion(_ context.Context, q live.Question) (live.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.questions[q.ID]; !ok {
		return live.Question{}, live.ErrQuestionNotFound
	}
	repo.db.questions[q.ID] = q
	return q, nil
}
