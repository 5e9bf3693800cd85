package forum

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

type Forum struct {
	ID          string     `json:"id" db:"id"`
	TrailID     *string    `json:"trail_id" db:"trail_id"`
	AuthorID    string     `json:"author_id" db:"author_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Locked      bool       `json:"locked" db:"locked"`
	PostCount   int        `json:"post_count" db:"post_count"`
	LastPostAt  *time.Time `json:"last_post_at" db:"last_post_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type Post struct {
	ID        string     `json:"id" db:"id"`
	ForumID   string     `json:"forum_id" db:"forum_id"`
	AuthorID  string     `json:"author_id" db:"author_id"`
	ParentID  *string    `json:"parent_id" db:"parent_id"`
	Body      string     `json:"body" db:"body"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	EditedAt  *time.Time `json:"edited_at" db:"edited_at"`
}

type NewForum struct {
	TrailID     string `json:"trail_id" validate:"omitempty,uuid"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

func (nf *NewForum) Validate(validate *validator.Validate) error {
	nf.TrailID = core.CleanString(nf.TrailID)
	nf.Title = core.CleanString(nf.Title)
	nf.Description = core.CleanString(nf.Description)
	return validate.Struct(nf)
}

type UpdateForum struct {
	Title       *string `json:"title" validate:"omitempty,notblank_,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (uf *UpdateForum) Validate(validate *validator.Validate) error { return validate.Struct(uf) }

type NewPost struct {
	ParentID string `json:"parent_id" validate:"omitempty,uuid"`
	Body     string `json:"body" validate:"required,max=10000"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.ParentID = core.CleanString(np.ParentID)
	np.Body = core.CleanString(np.Body)
	return validate.Struct(np)
}

type UpdatePost struct {
	Body string `json:"body" validate:"required,max=10000"`
}

func (up *UpdatePost) Validate(validate *validator.Validate) error {
	up.Body = core.CleanString(up.Body)
	return validate.Struct(up)
}

type QueryFilter struct {
	Search  string `query:"search"`
	TrailID string `query:"trail"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.TrailID = core.CleanString(qf.TrailID)
}
