package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core/library"
)

type libraryRepository struct {
	db *DB
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(db *DB) *libraryRepository {
	return &libraryRepository{db: db}
}

func cloneResource(r library.Resource) library.Resource {
	r.Tags = copyStrings(r.Tags)
	if r.Embedding != nil {
		r.Embedding = append(make([]float32, 0, len(r.Embedding)), r.Embedding...)
	}
	return r
}

func sortResources(resources []library.Resource) {
	sort.Slice(resources, func(i, j int) bool {
		if !resources[i].CreatedAt.Equal(resources[j].CreatedAt) {
			return resources[i].CreatedAt.After(resources[j].CreatedAt)
		}
		return resources[i].ID < resources[j].ID
	})
}

func (repo *libraryRepository) CreateResource(_ context.Context, r library.Resource) (library.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.resources[r.ID] = cloneResource(r)
	return r, nil
}

func matchResource(r library.Resource, filter library.QueryFilter) bool {
	if filter.Subject != "" && !strings.EqualFold(r.Subject, filter.Subject) {
		return false
	}
	if filter.Kind != "" && r.Kind != filter.Kind {
		return false
	}
	if filter.Tag != "" {
		var tagged bool
		for _, tag := range r.Tags {
			if tag == filter.Tag {
				tagged = true
				break
			}
		}
		if !tagged {
			return false
		}
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(r.Title), search) && !strings.Contains(strings.ToLower(r.Description), search) {
			return false
		}
	}
	return true
}

func (repo *libraryRepository) QueryResources(_ context.Context, filter library.QueryFilter) ([]library.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	resources := make([]library.Resource, 0, len(repo.db.resources))
	for _, r := range repo.db.resources {
		if matchResource(r, filter) {
			resources = append(resources, cloneResource(r))
		}
	}
	sortResources(resources)
	return resources, nil
}

func (repo *libraryRepository) QueryIndexedResources(_ context.Context) ([]library.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	resources := make([]library.Resource, 0, len(repo.db.resources))
	for _, r := range repo.db.resources {
		if r.Indexed() {
			resources = append(resources, cloneResource(r))
		}
	}
	sortResources(resources)
	return resources, nil
}

func (repo *libraryRepository) GetResource(_ context.Context, id string) (library.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if r, ok := repo.db.resources[id]; ok {
		return cloneResource(r), nil
	}
	return library.Resource{}, library.ErrNotFound
}

func (repo *libraryRepository) UpdateResource(_ context.Context, r library.Resource) (library.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.resources[r.ID]; !ok {
		return library.Resource{}, library.ErrNotFound
	}
	repo.db.resources[r.ID] = cloneResource(r)
	return r, nil
}

func (repo *libraryRepository) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	r, ok := repo.db.resources[id]
	if !ok {
		return library.ErrNotFound
	}
	r.Embedding = embedding
	repo.db.resources[id] = cloneResource(r)
	return nil
}

func (repo *libraryRepository) DeleteResource(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.resources[id]; !ok {
		return library.ErrNotFound
	}
	delete(repo.db.resources, id)
	return nil
}
