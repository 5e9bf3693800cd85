package live

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

const TopicKind = "live"

// Event types published on the live topic
const (
	EventStatusChanged    = "live.status"
	EventQuestionAsked    = "question.created"
	EventQuestionAnswered = "question.answered"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("live not found")
	ErrQuestionNotFound = core.NewNotFoundError("question not found")
	ErrStatusChanged    = core.NewConflictError("the live status changed meanwhile")

	errScheduledInPast = "scheduled_at must be in the future"
	errNotEditable     = "only scheduled lives can be edited"
	errQuestionsClosed = "this live does not accept questions anymore"
)

type (
	Repository interface {
		CreateLive(ctx context.Context, l Live) (Live, error)
		// QueryLives returns the lives matching filter ordered by ScheduledAt.
		QueryLives(ctx context.Context, filter QueryFilter) ([]Live, error)
		GetLive(ctx context.Context, id string) (Live, error)
		// UpdateLive saves the editable fields of a live that is still scheduled.
		// The reminder flag is reset when ScheduledAt changes and kept otherwise.
		UpdateLive(ctx context.Context, l Live) (Live, error)
		// TransitionLive saves Status, StartedAt and EndedAt only if the stored status is still `from`.
		// It fails with ErrStatusChanged otherwise.
		TransitionLive(ctx context.Context, l Live, from string) (Live, error)
		// SetReminderSent flags a scheduled live as reminded. It reports false when the live was already
		// reminded or is not scheduled anymore.
		SetReminderSent(ctx context.Context, id string, at time.Time) (bool, error)

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		// QueryQuestions returns the questions of a live oldest first.
		QueryQuestions(ctx context.Context, liveID string) ([]Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
	}

	// TrailFinder finds the trail a live is attached to.
	TrailFinder interface {
		GetTrail(ctx context.Context, id string) (course.Trail, error)
	}

	Service struct {
		repo   Repository
		trails TrailFinder
		pub    core.EventPublisher
		logger core.Logger
	}
)

func NewService(repo Repository, trails TrailFinder, pub core.EventPublisher, logger core.Logger) *Service {
	return &Service{repo: repo, trails: trails, pub: pub, logger: logger}
}

func canManage(actor user.User, l Live) bool {
	return actor.IsAdmin() || (actor.IsTeacher() && l.TeacherID == actor.ID)
}

func (svc *Service) publish(ctx context.Context, liveID, typ string, data interface{}) {
	core.PublishEvent(ctx, svc.pub, svc.logger, core.Topic(TopicKind, liveID), typ, data)
}

// Schedule creates a live owned by `actor`.
func (svc *Service) Schedule(ctx context.Context, actor user.User, nl NewLive) (Live, error) {
	if !actor.IsStaff() {
		return Live{}, core.ErrPermissionDenied
	}
	now := core.NowFunc()
	if !nl.ScheduledAt.After(now) {
		return Live{}, core.NewFieldError("scheduled_at", errScheduledInPast)
	}

	l := Live{
		ID:          uuid.New().String(),
		TeacherID:   actor.ID,
		Title:       nl.Title,
		Description: nl.Description,
		StreamURL:   nl.StreamURL,
		ScheduledAt: nl.ScheduledAt.UTC(),
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nl.TrailID != "" {
		t, err := svc.trails.GetTrail(ctx, nl.TrailID)
		if err != nil {
			if core.IsNotFound(err) {
				return Live{}, core.NewFieldError("trail_id", err.Error())
			}
			return Live{}, errors.Wrap(err, "finding trail")
		}
		if !actor.IsAdmin() && t.TeacherID != actor.ID {
			return Live{}, core.ErrPermissionDenied
		}
		l.TrailID = &t.ID
	}
	return svc.repo.CreateLive(ctx, l)
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Live, error) {
	lives, err := svc.repo.QueryLives(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying lives")
	}
	return lives, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Live, error) {
	return svc.repo.GetLive(ctx, id)
}

func (svc *Service) getManageable(ctx context.Context, actor user.User, id string) (Live, error) {
	l, err := svc.repo.GetLive(ctx, id)
	if err != nil {
		return Live{}, err
	}
	if !canManage(actor, l) {
		return Live{}, core.ErrPermissionDenied
	}
	return l, nil
}

// Update edits a live that has not started yet.
func (svc *Service) Update(ctx context.Context, actor user.User, id string, ul UpdateLive) (Live, error) {
	l, err := svc.getManageable(ctx, actor, id)
	if err != nil {
		return Live{}, err
	}
	if l.Status != StatusScheduled {
		return Live{}, core.NewFieldError("status", errNotEditable)
	}
	if ul.Title != nil {
		l.Title = core.CleanString(*ul.Title)
	}
	if ul.Description != nil {
		l.Description = core.CleanString(*ul.Description)
	}
	if ul.StreamURL != nil {
		l.StreamURL = core.CleanString(*ul.StreamURL)
	}
	if ul.ScheduledAt != nil {
		if !ul.ScheduledAt.After(core.NowFunc()) {
			return Live{}, core.NewFieldError("scheduled_at", errScheduledInPast)
		}
		l.ScheduledAt = ul.ScheduledAt.UTC()
	}
	l.UpdatedAt = core.NowFunc()
	if l, err = svc.repo.UpdateLive(ctx, l); err != nil {
		return Live{}, errors.Wrap(err, "updating live")
	}
	return l, nil
}

func (svc *Service) Start(ctx context.Context, actor user.User, id string) (Live, error) {
	l, err := svc.getManageable(ctx, actor, id)
	if err != nil {
		return Live{}, err
	}
	return svc.transition(ctx, l, StatusLive)
}

func (svc *Service) End(ctx context.Context, actor user.User, id string) (Live, error) {
	l, err := svc.getManageable(ctx, actor, id)
	if err != nil {
		return Live{}, err
	}
	return svc.transition(ctx, l, StatusEnded)
}

func (svc *Service) Cancel(ctx context.Context, actor user.User, id string) (Live, error) {
	l, err := svc.getManageable(ctx, actor, id)
	if err != nil {
		return Live{}, err
	}
	return svc.transition(ctx, l, StatusCancelled)
}

// transition moves `l` to `status` following the status machine:
// scheduled -> live -> ended, scheduled -> cancelled.
func (svc *Service) transition(ctx context.Context, l Live, status string) (Live, error) {
	if !CanTransition(l.Status, status) {
		return Live{}, core.NewFieldError("status", fmt.Sprintf("cannot go from %s to %s", l.Status, status))
	}
	from := l.Status
	now := core.NowFunc()
	switch status {
	case StatusLive:
		l.StartedAt = &now
	case StatusEnded:
		l.EndedAt = &now
	}
	l.Status = status
	l.UpdatedAt = now

	l, err := svc.repo.TransitionLive(ctx, l, from)
	if err != nil {
		return Live{}, errors.Wrap(err, "updating live")
	}
	svc.publish(ctx, l.ID, EventStatusChanged, l)
	return l, nil
}

// Ask adds a question to the feed of a scheduled or ongoing live.
func (svc *Service) Ask(ctx context.Context, actor user.User, liveID string, nq NewQuestion) (Question, error) {
	l, err := svc.repo.GetLive(ctx, liveID)
	if err != nil {
		return Question{}, err
	}
	if !l.AcceptsQuestions() {
		return Question{}, core.NewFieldError("body", errQuestionsClosed)
	}

	q, err := svc.repo.CreateQuestion(ctx, Question{
		ID:        uuid.New().String(),
		LiveID:    l.ID,
		UserID:    actor.ID,
		Body:      nq.Body,
		CreatedAt: core.NowFunc(),
	})
	if err != nil {
		return Question{}, errors.Wrap(err, "creating question")
	}
	svc.publish(ctx, l.ID, EventQuestionAsked, q)
	return q, nil
}

func (svc *Service) Questions(ctx context.Context, liveID string) ([]Question, error) {
	if _, err := svc.repo.GetLive(ctx, liveID); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuestions(ctx, liveID)
}

func (svc *Service) MarkAnswered(ctx context.Context, actor user.User, liveID, questionID string) (Question, error) {
	l, err := svc.getManageable(ctx, actor, liveID)
	if err != nil {
		return Question{}, err
	}
	q, err := svc.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return Question{}, err
	}
	if q.LiveID != l.ID {
		return Question{}, ErrQuestionNotFound
	}
	if q.Answered {
		return q, nil
	}
	q.Answered = true
	if q, err = svc.repo.UpdateQuestion(ctx, q); err != nil {
		return Question{}, errors.Wrap(err, "updating question")
	}
	svc.publish(ctx, l.ID, EventQuestionAnswered, q)
	return q, nil
}

// StartDue starts every scheduled live whose time has come. It returns the started lives.
func (svc *Service) StartDue(ctx context.Context, now time.Time) ([]Live, error) {
	due, err := svc.repo.QueryLives(ctx, QueryFilter{Status: StatusScheduled, To: now})
	if err != nil {
		return nil, errors.Wrap(err, "querying due lives")
	}
	started := make([]Live, 0, len(due))
	for _, l := range due {
		l, err := svc.transition(ctx, l, StatusLive)
		if err != nil {
			if core.IsConflict(err) {
				continue // started or cancelled by its teacher meanwhile
			}
			return started, err
		}
		started = append(started, l)
	}
	return started, nil
}

// DueReminders returns the scheduled lives starting within `lead` whose reminder was not sent yet.
func (svc *Service) DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]Live, error) {
	lives, err := svc.repo.QueryLives(ctx, QueryFilter{Status: StatusScheduled, From: now, To: now.Add(lead)})
	if err != nil {
		return nil, errors.Wrap(err, "querying upcoming lives")
	}
	due := make([]Live, 0, len(lives))
	for _, l := range lives {
		if !l.ReminderSent {
			due = append(due, l)
		}
	}
	return due, nil
}

// ClaimReminder flags the live `id` as reminded. Only the first claim of a scheduled live succeeds,
// so the caller sends the reminder only when it gets true.
func (svc *Service) ClaimReminder(ctx context.Context, id string) (bool, error) {
	ok, err := svc.repo.SetReminderSent(ctx, id, core.NowFunc())
	if err != nil {
		return false, errors.Wrap(err, "setting reminder sent")
	}
	return ok, nil
}
