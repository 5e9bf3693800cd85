package live_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

type fixture struct {
	svc                     *live.Service
	repo                    live.Repository
	courseRepo              course.Repository
	events                  *testutil.EventRecorder
	admin, teacher, student user.User
	otherTeacher            user.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	repo := inmemdb.NewLiveRepository(db)
	events := new(testutil.EventRecorder)
	return fixture{
		svc:          live.NewService(repo, courseRepo, events, testutil.NewLogger(core.NewTestConfig())),
		repo:         repo,
		courseRepo:   courseRepo,
		events:       events,
		admin:        testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true),
		teacher:      testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true),
		otherTeacher: testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleTeacher}, true),
		student:      testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true),
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{live.StatusScheduled, live.StatusLive, true},
		{live.StatusScheduled, live.StatusCancelled, true},
		{live.StatusScheduled, live.StatusEnded, false},
		{live.StatusLive, live.StatusEnded, true},
		{live.StatusLive, live.StatusCancelled, false},
		{live.StatusEnded, live.StatusLive, false},
		{live.StatusCancelled, live.StatusScheduled, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, live.CanTransition(tt.from, tt.to))
		})
	}
}

func TestService_Schedule(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	soon := time.Now().Add(time.Hour)

	ownTrail := testutil.CreateTrail(t, fx.courseRepo, fx.teacher, "Algebra", course.StatusPublished)
	otherTrail := testutil.CreateTrail(t, fx.courseRepo, fx.otherTeacher, "Physics", course.StatusPublished)

	_, err := fx.svc.Schedule(ctx, fx.student, live.NewLive{Title: "Nope", ScheduledAt: soon})
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = fx.svc.Schedule(ctx, fx.teacher, live.NewLive{Title: "Past", ScheduledAt: time.Now().Add(-time.Minute)})
	assert.Error(t, err)

	_, err = fx.svc.Schedule(ctx, fx.teacher, live.NewLive{Title: "Unknown trail", ScheduledAt: soon, TrailID: "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0fff"})
	assert.Error(t, err)
	assert.False(t, core.IsNotFound(err), "an unknown trail is a validation error")

	_, err = fx.svc.Schedule(ctx, fx.teacher, live.NewLive{Title: "Not mine", ScheduledAt: soon, TrailID: otherTrail.ID})
	assert.Equal(t, core.ErrPermissionDenied, err)

	l, err := fx.svc.Schedule(ctx, fx.teacher, live.NewLive{Title: "Q&A", ScheduledAt: soon, TrailID: ownTrail.ID})
	require.NoError(t, err)
	assert.Equal(t, live.StatusScheduled, l.Status)
	require.NotNil(t, l.TrailID)
	assert.Equal(t, ownTrail.ID, *l.TrailID)

	_, err = fx.svc.Schedule(ctx, fx.admin, live.NewLive{Title: "Admin", ScheduledAt: soon, TrailID: otherTrail.ID})
	assert.NoError(t, err)
}

func TestService_lifecycle(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	l := testutil.CreateLive(t, fx.repo, fx.teacher, "Q&A", time.Now().Add(time.Hour))
	topic := core.Topic(live.TopicKind, l.ID)

	title := "Updated"
	_, err := fx.svc.Update(ctx, fx.otherTeacher, l.ID, live.UpdateLive{Title: &title})
	assert.Equal(t, core.ErrPermissionDenied, err)

	l, err = fx.svc.Update(ctx, fx.teacher, l.ID, live.UpdateLive{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Updated", l.Title)

	_, err = fx.svc.End(ctx, fx.teacher, l.ID)
	assert.Error(t, err, "a scheduled live cannot end")

	l, err = fx.svc.Start(ctx, fx.teacher, l.ID)
	require.NoError(t, err)
	assert.Equal(t, live.StatusLive, l.Status)
	assert.NotNil(t, l.StartedAt)

	_, err = fx.svc.Update(ctx, fx.teacher, l.ID, live.UpdateLive{Title: &title})
	assert.Error(t, err, "only scheduled lives are editable")

	q, err := fx.svc.Ask(ctx, fx.student, l.ID, live.NewQuestion{Body: "Why?"})
	require.NoError(t, err)

	_, err = fx.svc.MarkAnswered(ctx, fx.student, l.ID, q.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
	q, err = fx.svc.MarkAnswered(ctx, fx.teacher, l.ID, q.ID)
	require.NoError(t, err)
	assert.True(t, q.Answered)
	_, err = fx.svc.MarkAnswered(ctx, fx.teacher, l.ID, q.ID)
	require.NoError(t, err, "answering twice is a no-op")

	l, err = fx.svc.End(ctx, fx.admin, l.ID)
	require.NoError(t, err)
	assert.Equal(t, live.StatusEnded, l.Status)
	assert.NotNil(t, l.EndedAt)

	_, err = fx.svc.Ask(ctx, fx.student, l.ID, live.NewQuestion{Body: "Too late?"})
	assert.Error(t, err)

	qs, err := fx.svc.Questions(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, qs, 1)

	assert.Equal(t, []string{
		live.EventStatusChanged,
		live.EventQuestionAsked,
		live.EventQuestionAnswered,
		live.EventStatusChanged,
	}, fx.events.Types(topic))
}

func TestService_MarkAnswered_otherLive(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	l1 := testutil.CreateLive(t, fx.repo, fx.teacher, "One", time.Now().Add(time.Hour))
	l2 := testutil.CreateLive(t, fx.repo, fx.teacher, "Two", time.Now().Add(time.Hour))
	q, err := fx.svc.Ask(ctx, fx.student, l1.ID, live.NewQuestion{Body: "Hello"})
	require.NoError(t, err)

	_, err = fx.svc.MarkAnswered(ctx, fx.teacher, l2.ID, q.ID)
	assert.Equal(t, live.ErrQuestionNotFound, err)
}

func TestService_scheduling(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	past := testutil.CreateLive(t, fx.repo, fx.teacher, "Past", now.Add(-time.Minute))
	soon := testutil.CreateLive(t, fx.repo, fx.teacher, "Soon", now.Add(10*time.Minute))
	later := testutil.CreateLive(t, fx.repo, fx.teacher, "Later", now.Add(3*time.Hour))
	cancelled := testutil.CreateLive(t, fx.repo, fx.teacher, "Cancelled", now.Add(-2*time.Minute))
	_, err := fx.svc.Cancel(ctx, fx.teacher, cancelled.ID)
	require.NoError(t, err)

	reminders, err := fx.svc.DueReminders(ctx, now, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, soon.ID, reminders[0].ID)

	ok, err := fx.svc.ClaimReminder(ctx, reminders[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = fx.svc.ClaimReminder(ctx, reminders[0].ID)
	require.NoError(t, err)
	assert.False(t, ok, "a reminder is claimed once")
	reminders, err = fx.svc.DueReminders(ctx, now, 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, reminders, "a reminder is sent once")

	started, err := fx.svc.StartDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, started, 1)
	assert.Equal(t, past.ID, started[0].ID)
	assert.Equal(t, live.StatusLive, started[0].Status)

	l, err := fx.svc.Get(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, live.StatusScheduled, l.Status)

	t.Run("rescheduling resets the reminder", func(t *testing.T) {
		at := now.Add(2 * time.Hour)
		l, err := fx.svc.Update(ctx, fx.teacher, soon.ID, live.UpdateLive{ScheduledAt: &at})
		require.NoError(t, err)
		assert.False(t, l.ReminderSent)
	})
}

func TestService_ClaimReminder_afterStart(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	l := testutil.CreateLive(t, fx.repo, fx.teacher, "Algebra", now.Add(10*time.Minute))
	due, err := fx.svc.DueReminders(ctx, now, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 1)

	_, err = fx.svc.Start(ctx, fx.teacher, l.ID)
	require.NoError(t, err)

	ok, err := fx.svc.ClaimReminder(ctx, due[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := fx.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, live.StatusLive, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.False(t, got.ReminderSent)
}

func TestService_staleWrites(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	l := testutil.CreateLive(t, fx.repo, fx.teacher, "Algebra", time.Now().Add(time.Hour))
	stale, err := fx.svc.Get(ctx, l.ID)
	require.NoError(t, err)

	_, err = fx.svc.Cancel(ctx, fx.teacher, l.ID)
	require.NoError(t, err)

	t.Run("transition from a status that moved on", func(t *testing.T) {
		now := time.Now()
		started := stale
		started.Status = live.StatusLive
		started.StartedAt = &now
		_, err := fx.repo.TransitionLive(ctx, started, live.StatusScheduled)
		assert.Equal(t, live.ErrStatusChanged, err)
		assert.True(t, core.IsConflict(err))
	})

	t.Run("edit of a live that is not scheduled anymore", func(t *testing.T) {
		edited := stale
		edited.Title = "Renamed"
		_, err := fx.repo.UpdateLive(ctx, edited)
		assert.Equal(t, live.ErrStatusChanged, err)
	})

	t.Run("unknown live", func(t *testing.T) {
		unknown := stale
		unknown.ID = "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0fff"
		_, err := fx.repo.TransitionLive(ctx, unknown, live.StatusScheduled)
		assert.Equal(t, live.ErrNotFound, err)
	})

	got, err := fx.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, live.StatusCancelled, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.Equal(t, "Algebra", got.Title)

	started, err := fx.svc.StartDue(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, started)
}
