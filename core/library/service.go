package library

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const reindexConcurrency = 4

var (
	// errors
	ErrNotFound = core.NewNotFoundError("resource not found")
	// ErrNoEmbedder is returned by the operations that cannot work without embeddings.
	ErrNoEmbedder = errors.New("library: no embedder configured")
)

type (
	Repository interface {
		CreateResource(ctx context.Context, r Resource) (Resource, error)
		// QueryResources returns the resources matching filter, newest first.
		QueryResources(ctx context.Context, filter QueryFilter) ([]Resource, error)
		// QueryIndexedResources returns every resource having an embedding.
		QueryIndexedResources(ctx context.Context) ([]Resource, error)
		GetResource(ctx context.Context, id string) (Resource, error)
		UpdateResource(ctx context.Context, r Resource) (Resource, error)
		SetEmbedding(ctx context.Context, id string, embedding []float32) error
		DeleteResource(ctx context.Context, id string) error
	}

	// Embedder turns texts into embedding vectors.
	Embedder interface {
		EmbedDocument(ctx context.Context, text string) ([]float32, error)
		EmbedQuery(ctx context.Context, text string) ([]float32, error)
	}

	Service struct {
		repo     Repository
		embedder Embedder
		logger   core.Logger
	}
)

func NewService(repo Repository, embedder Embedder, logger core.Logger) *Service {
	return &Service{repo: repo, embedder: embedder, logger: logger}
}

func canEdit(actor user.User, r Resource) bool {
	return actor.IsAdmin() || r.UploadedBy == actor.ID
}

// Create stores a resource and embeds it. A failed embedding is logged and the resource saved without one.
func (svc *Service) Create(ctx context.Context, actor user.User, nr NewResource) (Resource, error) {
	if !actor.IsStaff() {
		return Resource{}, core.ErrPermissionDenied
	}
	now := core.NowFunc()
	r := Resource{
		ID:          uuid.New().String(),
		Title:       nr.Title,
		Description: nr.Description,
		Subject:     nr.Subject,
		Kind:        nr.Kind,
		URL:         nr.URL,
		Tags:        nr.Tags,
		UploadedBy:  actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	r.Embedding = svc.embed(ctx, r)
	return svc.repo.CreateResource(ctx, r)
}

func (svc *Service) embed(ctx context.Context, r Resource) []float32 {
	if svc.embedder == nil {
		return nil
	}
	vec, err := svc.embedder.EmbedDocument(ctx, r.embeddingText())
	if err != nil {
		svc.logger.Warn("library: embedding resource "+r.ID, err)
		return nil
	}
	return vec
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Resource, error) {
	filter.Clean()
	resources, err := svc.repo.QueryResources(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	return resources, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Resource, error) {
	return svc.repo.GetResource(ctx, id)
}

// Update edits a resource, re-embedding it when its indexed text changed.
func (svc *Service) Update(ctx context.Context, actor user.User, id string, ur UpdateResource) (Resource, error) {
	r, err := svc.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	if !canEdit(actor, r) {
		return Resource{}, core.ErrPermissionDenied
	}

	before := r.embeddingText()
	if ur.Title != nil {
		r.Title = core.CleanString(*ur.Title)
	}
	if ur.Description != nil {
		r.Description = core.CleanString(*ur.Description)
	}
	if ur.Subject != nil {
		r.Subject = core.CleanString(*ur.Subject)
	}
	if ur.Kind != nil {
		r.Kind = core.CleanString(*ur.Kind, true /* lower */)
	}
	if ur.URL != nil {
		r.URL = core.CleanString(*ur.URL)
	}
	if ur.Tags != nil {
		r.Tags = ur.Tags
	}
	if r.embeddingText() != before || !r.Indexed() {
		r.Embedding = svc.embed(ctx, r)
	}
	r.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateResource(ctx, r)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	r, err := svc.repo.GetResource(ctx, id)
	if err != nil {
		return err
	}
	if !canEdit(actor, r) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteResource(ctx, id)
}

// Search embeds the query and returns the `k` most similar resources whose similarity reaches `threshold`.
func (svc *Service) Search(ctx context.Context, sq SearchQuery) ([]Match, error) {
	if sq.K <= 0 {
		sq.K = DefaultK
	} else if sq.K > MaxK {
		sq.K = MaxK
	}
	if sq.Threshold <= 0 {
		sq.Threshold = DefaultThreshold
	}
	if svc.embedder == nil {
		return nil, ErrNoEmbedder
	}

	vec, err := svc.embedder.EmbedQuery(ctx, sq.Query)
	if err != nil {
		return nil, errors.Wrap(err, "embedding query")
	}
	resources, err := svc.repo.QueryIndexedResources(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying indexed resources")
	}
	return rank(vec, resources, sq.K, sq.Threshold), nil
}

// ReindexReport counts the resources of a Reindex run.
type ReindexReport struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// Reindex recomputes the embedding of every resource with bounded parallelism.
// A resource the embedder rejects is logged and skipped; storage failures abort the run.
// When every resource was rejected, the first embedding error is returned.
func (svc *Service) Reindex(ctx context.Context) (ReindexReport, error) {
	if svc.embedder == nil {
		return ReindexReport{}, ErrNoEmbedder
	}
	resources, err := svc.repo.QueryResources(ctx, QueryFilter{})
	if err != nil {
		return ReindexReport{}, errors.Wrap(err, "querying resources")
	}

	var (
		mu       sync.Mutex
		report   ReindexReport
		firstErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)
	for _, r := range resources {
		r := r
		g.Go(func() error {
			vec, err := svc.embedder.EmbedDocument(gctx, r.embeddingText())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				svc.logger.Warn("library: reindexing resource "+r.ID, err)
				mu.Lock()
				report.Skipped++
				if firstErr == nil {
					firstErr = errors.Wrapf(err, "embedding resource %s", r.ID)
				}
				mu.Unlock()
				return nil
			}
			if err := svc.repo.SetEmbedding(gctx, r.ID, vec); err != nil {
				return errors.Wrapf(err, "saving embedding of resource %s", r.ID)
			}
			mu.Lock()
			report.Indexed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if report.Indexed == 0 && firstErr != nil {
		return report, firstErr
	}
	return report, nil
}

// rank orders resources by cosine similarity to `vec`, dropping those under `threshold`.
func rank(vec []float32, resources []Resource, k int, threshold float64) []Match {
	matches := make([]Match, 0, len(resources))
	for _, r := range resources {
		sim := cosineSimilarity(vec, r.Embedding)
		if sim >= threshold {
			matches = append(matches, Match{Resource: r, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// cosineSimilarity returns 0 for vectors of different lengths or with a zero norm.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
