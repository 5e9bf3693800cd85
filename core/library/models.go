package library

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Resource kinds
const (
	KindBook     = "book"
	KindArticle  = "article"
	KindVideo    = "video"
	KindLink     = "link"
	KindDocument = "document"
)

var Kinds = []string{KindBook, KindArticle, KindVideo, KindLink, KindDocument}

const (
	DefaultThreshold = 0.5
	DefaultK         = 10
	MaxK             = 50
)

type Resource struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Subject     string    `json:"subject" db:"subject"`
	Kind        string    `json:"kind" db:"kind"`
	URL         string    `json:"url" db:"url"`
	Tags        []string  `json:"tags" db:"tags"`
	UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
	Embedding   []float32 `json:"-" db:"embedding"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Indexed reports whether the resource has an embedding.
func (r Resource) Indexed() bool { return len(r.Embedding) > 0 }

// embeddingText is the text embedded for a resource.
func (r Resource) embeddingText() string {
	parts := []string{r.Title}
	if r.Subject != "" {
		parts = append(parts, r.Subject)
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	if len(r.Tags) > 0 {
		parts = append(parts, strings.Join(r.Tags, ", "))
	}
	return strings.Join(parts, "\n")
}

// Match is a Resource ranked by its similarity to a search query.
type Match struct {
	Resource
	Similarity float64 `json:"similarity"`
}

type NewResource struct {
	Title       string   `json:"title" validate:"required,max=300"`
	Description string   `json:"description" validate:"omitempty,max=10000"`
	Subject     string   `json:"subject" validate:"omitempty,max=100"`
	Kind        string   `json:"kind" validate:"required,resourcekind"`
	URL         string   `json:"url" validate:"required,url"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Subject = core.CleanString(nr.Subject)
	nr.Kind = core.CleanString(nr.Kind, true /* lower */)
	nr.URL = core.CleanString(nr.URL)
	nr.Tags = core.CleanStrings(nr.Tags, true /* lower */)
	return validate.Struct(nr)
}

type UpdateResource struct {
	Title       *string  `json:"title" validate:"omitempty,notblank_,max=300"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Subject     *string  `json:"subject" validate:"omitempty,max=100"`
	Kind        *string  `json:"kind" validate:"omitempty,resourcekind"`
	URL         *string  `json:"url" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

func (ur *UpdateResource) Validate(validate *validator.Validate) error {
	ur.Tags = core.CleanStrings(ur.Tags, true /* lower */)
	return validate.Struct(ur)
}

type QueryFilter struct {
	Subject string `query:"subject"`
	Kind    string `query:"kind"`
	Tag     string `query:"tag"`
	Search  string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Subject = core.CleanString(qf.Subject)
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.Tag = core.CleanString(qf.Tag, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

type SearchQuery struct {
	Query     string  `query:"q" validate:"required,max=1000"`
	K         int     `query:"k" validate:"min=0,max=50"`
	Threshold float64 `query:"threshold" validate:"min=0,max=1"`
}

func (sq *SearchQuery) Validate(validate *validator.Validate) error {
	sq.Query = core.CleanString(sq.Query)
	if sq.K == 0 {
		sq.K = DefaultK
	}
	if sq.Threshold == 0 {
		sq.Threshold = DefaultThreshold
	}
	return validate.Struct(sq)
}
