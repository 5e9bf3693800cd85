// Package testutil holds the fixtures shared by the tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/library"
	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
	logsvc "github.com/trezcool/academia/services/logger"
)

func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom tag registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidation()
	return validate
}

// NewValidation returns a validator with every custom tag registered, along with its translator.
func NewValidation() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	live.InitValidators(validate, translator)
	library.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateTrail(t *testing.T, repo course.Repository, teacher user.User, title, status string) course.Trail {
	t.Helper()
	now := time.Now().UTC()
	tr, err := repo.CreateTrail(context.Background(), course.Trail{
		ID:        uuid.New().String(),
		TeacherID: teacher.ID,
		Title:     title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTrail(): %v", err)
	}
	return tr
}

func CreateModule(t *testing.T, repo course.Repository, trail course.Trail, title string, position int) course.Module {
	t.Helper()
	now := time.Now().UTC()
	m, err := repo.CreateModule(context.Background(), course.Module{
		ID:        uuid.New().String(),
		TrailID:   trail.ID,
		Title:     title,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateModule(): %v", err)
	}
	return m
}

func CreateContent(t *testing.T, repo course.Repository, module course.Module, title, status string, position int) course.Content {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreateContent(context.Background(), course.Content{
		ID:        uuid.New().String(),
		ModuleID:  module.ID,
		Title:     title,
		Kind:      course.KindText,
		Position:  position,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateContent(): %v", err)
	}
	return c
}

func CreateLive(t *testing.T, repo live.Repository, teacher user.User, title string, scheduledAt time.Time) live.Live {
	t.Helper()
	now := time.Now().UTC()
	l, err := repo.CreateLive(context.Background(), live.Live{
		ID:          uuid.New().String(),
		TeacherID:   teacher.ID,
		Title:       title,
		ScheduledAt: scheduledAt.UTC(),
		Status:      live.StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateLive(): %v", err)
	}
	return l
}

// EventRecorder is a core.EventPublisher keeping every published event.
type EventRecorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *EventRecorder) Publish(_ context.Context, evt core.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Types returns the types of the events published on `topic`, in order.
func (r *EventRecorder) Types(topic string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0)
	for _, evt := range r.events {
		if evt.Topic == topic {
			types = append(types, evt.Type)
		}
	}
	return types
}
