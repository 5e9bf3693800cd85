package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Statuses of Trails and Contents
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Content kinds
const (
	KindText  = "text"
	KindVideo = "video"
	KindPDF   = "pdf"
	KindLink  = "link"
	KindQuiz  = "quiz"
)

var ContentKinds = []string{KindText, KindVideo, KindPDF, KindLink, KindQuiz}

// Trail is a learning path owned by a teacher.
type Trail struct {
	ID          string    `json:"id" db:"id"`
	TeacherID   string    `json:"teacher_id" db:"teacher_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Subject     string    `json:"subject" db:"subject"`
	CoverURL    string    `json:"cover_url" db:"cover_url"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (t Trail) IsPublished() bool { return t.Status == StatusPublished }

// Module is a unit of a Trail.
type Module struct {
	ID          string    `json:"id" db:"id"`
	TrailID     string    `json:"trail_id" db:"trail_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Position    int       `json:"position" db:"position"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Content is a lesson of a Module.
type Content struct {
	ID              string    `json:"id" db:"id"`
	ModuleID        string    `json:"module_id" db:"module_id"`
	Title           string    `json:"title" db:"title"`
	Kind            string    `json:"kind" db:"kind"`
	Body            string    `json:"body" db:"body"`
	URL             string    `json:"url" db:"url"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Position        int       `json:"position" db:"position"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

func (c Content) IsPublished() bool { return c.Status == StatusPublished }

type Progress struct {
	UserID      string    `json:"user_id" db:"user_id"`
	ContentID   string    `json:"content_id" db:"content_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

type NewTrail struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Subject     string `json:"subject" validate:"omitempty,max=100"`
	CoverURL    string `json:"cover_url" validate:"omitempty,url"`
}

func (nt *NewTrail) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	nt.Subject = core.CleanString(nt.Subject)
	nt.CoverURL = core.CleanString(nt.CoverURL)
	return validate.Struct(nt)
}

type UpdateTrail struct {
	Title       *string `json:"title" validate:"omitempty,notblank_,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Subject     *string `json:"subject" validate:"omitempty,max=100"`
	CoverURL    *string `json:"cover_url" validate:"omitempty,url"`
}

func (ut *UpdateTrail) Validate(validate *validator.Validate) error {
	return validate.Struct(ut)
}

type NewModule struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

type UpdateModule struct {
	Title       *string `json:"title" validate:"omitempty,notblank_,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (um *UpdateModule) Validate(validate *validator.Validate) error { return validate.Struct(um) }

type NewContent struct {
	Title           string `json:"title" validate:"required,max=200"`
	Kind            string `json:"kind" validate:"required,contentkind"`
	Body            string `json:"body" validate:"omitempty,max=100000"`
	URL             string `json:"url" validate:"omitempty,url"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0,max=1440"`
	Status          string `json:"status" validate:"omitempty,oneof=draft published"`
}

func (nc *NewContent) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Kind = core.CleanString(nc.Kind, true /* lower */)
	nc.URL = core.CleanString(nc.URL)
	nc.Status = core.CleanString(nc.Status, true /* lower */)
	if nc.Status == "" {
		nc.Status = StatusDraft
	}
	return validate.Struct(nc)
}

type UpdateContent struct {
	Title           *string `json:"title" validate:"omitempty,notblank_,max=200"`
	Body            *string `json:"body" validate:"omitempty,max=100000"`
	URL             *string `json:"url" validate:"omitempty,url"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=0,max=1440"`
	Status          *string `json:"status" validate:"omitempty,oneof=draft published"`
}

func (uc *UpdateContent) Validate(validate *validator.Validate) error { return validate.Struct(uc) }

// Reorder lists every child id of a parent in its new order.
type Reorder struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (r *Reorder) Validate(validate *validator.Validate) error { return validate.Struct(r) }

type TrailFilter struct {
	TeacherID string `query:"teacher"`
	Status    string `query:"status"`
	Subject   string `query:"subject"`
	Search    string `query:"search"`

	// VisibleTo restricts results to published trails and the drafts of this teacher.
	VisibleTo string `query:"-"`
	// PublishedOnly restricts results to published trails.
	PublishedOnly bool `query:"-"`
}

func (tf *TrailFilter) Clean() {
	tf.TeacherID = core.CleanString(tf.TeacherID)
	tf.Status = core.CleanString(tf.Status, true /* lower */)
	tf.Subject = core.CleanString(tf.Subject)
	tf.Search = core.CleanString(tf.Search)
}

// TrailOrderingFields lists the fields Trails can be ordered by.
var TrailOrderingFields = []string{"title", "subject", "status", "created_at", "updated_at"}

type (
	ModuleOutline struct {
		Module
		Contents []Content `json:"contents"`
	}

	// Outline is a Trail with its Modules and their Contents, in order.
	Outline struct {
		Trail
		Modules []ModuleOutline `json:"modules"`
	}

	ModuleProgress struct {
		ModuleID  string `json:"module_id"`
		Completed int    `json:"completed"`
		Total     int    `json:"total"`
	}

	TrailProgress struct {
		TrailID    string           `json:"trail_id"`
		Completed  int              `json:"completed"`
		Total      int              `json:"total"`
		Percentage float64          `json:"percentage"`
		Modules    []ModuleProgress `json:"modules"`
	}
)
