package live

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Statuses
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusEnded     = "ended"
	StatusCancelled = "cancelled"
)

var Statuses = []string{StatusScheduled, StatusLive, StatusEnded, StatusCancelled}

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	StatusScheduled: {StatusLive, StatusCancelled},
	StatusLive:      {StatusEnded},
}

// CanTransition reports whether a Live may go from status `from` to status `to`.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Live is a scheduled or ongoing video broadcast, paired with a question feed.
type Live struct {
	ID           string     `json:"id" db:"id"`
	TeacherID    string     `json:"teacher_id" db:"teacher_id"`
	TrailID      *string    `json:"trail_id" db:"trail_id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	StreamURL    string     `json:"stream_url" db:"stream_url"`
	ScheduledAt  time.Time  `json:"scheduled_at" db:"scheduled_at"`
	StartedAt    *time.Time `json:"started_at" db:"started_at"`
	EndedAt      *time.Time `json:"ended_at" db:"ended_at"`
	Status       string     `json:"status" db:"status"`
	ReminderSent bool       `json:"reminder_sent" db:"reminder_sent"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// AcceptsQuestions is true while the live has not ended nor been cancelled.
func (l Live) AcceptsQuestions() bool {
	return l.Status == StatusScheduled || l.Status == StatusLive
}

type Question struct {
	ID        string    `json:"id" db:"id"`
	LiveID    string    `json:"live_id" db:"live_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	Answered  bool      `json:"answered" db:"answered"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewLive struct {
	TrailID     string    `json:"trail_id" validate:"omitempty,uuid"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"omitempty,max=5000"`
	StreamURL   string    `json:"stream_url" validate:"omitempty,url"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

func (nl *NewLive) Validate(validate *validator.Validate) error {
	nl.TrailID = core.CleanString(nl.TrailID)
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	nl.StreamURL = core.CleanString(nl.StreamURL)
	return validate.Struct(nl)
}

type UpdateLive struct {
	Title       *string    `json:"title" validate:"omitempty,notblank_,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	StreamURL   *string    `json:"stream_url" validate:"omitempty,url"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (ul *UpdateLive) Validate(validate *validator.Validate) error { return validate.Struct(ul) }

type NewQuestion struct {
	Body string `json:"body" validate:"required,max=1000"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Body = core.CleanString(nq.Body)
	return validate.Struct(nq)
}

type QueryFilter struct {
	Status    string    `query:"status" validate:"omitempty,livestatus"`
	TeacherID string    `query:"teacher"`
	TrailID   string    `query:"trail"`
	From      time.Time `query:"from"`
	To        time.Time `query:"to"`
}

func (qf *QueryFilter) Validate(validate *validator.Validate) error {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.TrailID = core.CleanString(qf.TrailID)
	return validate.Struct(qf)
}
