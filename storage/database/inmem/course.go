package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// Trails

func (repo *courseRepository) CreateTrail(_ context.Context, t course.Trail) (course.Trail, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.trails[t.ID] = t
	return t, nil
}

func matchTrail(t course.Trail, filter course.TrailFilter) bool {
	if filter.TeacherID != "" && t.TeacherID != filter.TeacherID {
		return false
	}
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.Subject != "" && !strings.EqualFold(t.Subject, filter.Subject) {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(t.Title), search) && !strings.Contains(strings.ToLower(t.Description), search) {
			return false
		}
	}
	if filter.PublishedOnly && !t.IsPublished() {
		return false
	}
	if filter.VisibleTo != "" && !t.IsPublished() && t.TeacherID != filter.VisibleTo {
		return false
	}
	return true
}

func compareTrails(a, b course.Trail, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "subject":
		return strings.Compare(a.Subject, b.Subject)
	case "status":
		return strings.Compare(a.Status, b.Status)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	default:
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
}

func (repo *courseRepository) QueryTrails(_ context.Context, filter course.TrailFilter, ordering []core.DBOrdering) ([]course.Trail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	trails := make([]course.Trail, 0, len(repo.db.trails))
	for _, t := range repo.db.trails {
		if matchTrail(t, filter) {
			trails = append(trails, t)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(trails, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareTrails(trails[i], trails[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return trails[i].ID < trails[j].ID
	})
	return trails, nil
}

func (repo *courseRepository) GetTrail(_ context.Context, id string) (course.Trail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if t, ok := repo.db.trails[id]; ok {
		return t, nil
	}
	return course.Trail{}, course.ErrTrailNotFound
}

func (repo *courseRepository) UpdateTrail(_ context.Context, t course.Trail) (course.Trail, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.trails[t.ID]; !ok {
		return course.Trail{}, course.ErrTrailNotFound
	}
	repo.db.trails[t.ID] = t
	return t, nil
}

func (repo *courseRepository) DeleteTrail(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.trails[id]; !ok {
		return course.ErrTrailNotFound
	}
	delete(repo.db.trails, id)
	for _, m := range repo.db.modules {
		if m.TrailID == id {
			repo.deleteModuleLocked(m.ID)
		}
	}
	return nil
}

// Modules

func (repo *courseRepository) CreateModule(_ context.Context, m course.Module) (course.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.modules[m.ID] = m
	return m, nil
}

func (repo *courseRepository) QueryModules(_ context.Context, trailID string) ([]course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mods := make([]course.Module, 0)
	for _, m := range repo.db.modules {
		if m.TrailID == trailID {
			mods = append(mods, m)
		}
	}
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Position != mods[j].Position {
			return mods[i].Position < mods[j].Position
		}
		return mods[i].CreatedAt.Before(mods[j].CreatedAt)
	})
	return mods, nil
}

func (repo *courseRepository) GetModule(_ context.Context, id string) (course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if m, ok := repo.db.modules[id]; ok {
		return m, nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *courseRepository) UpdateModule(_ context.Context, m course.Module) (course.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.modules[m.ID]; !ok {
		return course.Module{}, course.ErrModuleNotFound
	}
	repo.db.modules[m.ID] = m
	return m, nil
}

func (repo *courseRepository) DeleteModule(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.modules[id]; !ok {
		return course.ErrModuleNotFound
	}
	repo.deleteModuleLocked(id)
	return nil
}

func (repo *courseRepository) deleteModuleLocked(id string) {
	delete(repo.db.modules, id)
	for _, c := range repo.db.contents {
		if c.ModuleID == id {
			repo.deleteContentLocked(c.ID)
		}
	}
}

func (repo *courseRepository) SetModulePositions(_ context.Context, trailID string, ids []string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for pos, id := range ids {
		m, ok := repo.db.modules[id]
		if !ok || m.TrailID != trailID {
			return course.ErrModuleNotFound
		}
		m.Position = pos
		repo.db.modules[id] = m
	}
	return nil
}

// Contents

func (repo *courseRepository) CreateContent(_ context.Context, c course.Content) (course.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.contents[c.ID] = c
	return c, nil
}

func (repo *courseRepository) QueryContents(_ context.Context, moduleIDs ...string) ([]course.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]int, len(moduleIDs))
	for i, id := range moduleIDs {
		wanted[id] = i
	}
	contents := make([]course.Content, 0)
	for _, c := range repo.db.contents {
		if _, ok := wanted[c.ModuleID]; ok {
			contents = append(contents, c)
		}
	}
	sort.Slice(contents, func(i, j int) bool {
		a, b := contents[i], contents[j]
		if a.ModuleID != b.ModuleID {
			return wanted[a.ModuleID] < wanted[b.ModuleID]
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return contents, nil
}

func (repo *courseRepository) GetContent(_ context.Context, id string) (course.Content, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if c, ok := repo.db.contents[id]; ok {
		return c, nil
	}
	return course.Content{}, course.ErrContentNotFound
}

func (repo *courseRepository) UpdateContent(_ context.Context, c course.Content) (course.Content, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.contents[c.ID]; !ok {
		return course.Content{}, course.ErrContentNotFound
	}
	repo.db.contents[c.ID] = c
	return c, nil
}

func (repo *courseRepository) DeleteContent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.contents[id]; !ok {
		return course.ErrContentNotFound
	}
	repo.deleteContentLocked(id)
	return nil
}

func (repo *courseRepository) deleteContentLocked(id string) {
	delete(repo.db.contents, id)
	for key := range repo.db.progress {
		if key.contentID == id {
			delete(repo.db.progress, key)
		}
	}
}

func (repo *courseRepository) SetContentPositions(_ context.Context, moduleID string, ids []string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for pos, id := range ids {
		c, ok := repo.db.contents[id]
		if !ok || c.ModuleID != moduleID {
			return course.ErrContentNotFound
		}
		c.Position = pos
		repo.db.contents[id] = c
	}
	return nil
}

// Progress

func (repo *courseRepository) SaveProgress(_ context.Context, p course.Progress) (course.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	key := progressKey{userID: p.UserID, contentID: p.ContentID}
	if existing, ok := repo.db.progress[key]; ok {
		return existing, nil
	}
	repo.db.progress[key] = p
	return p, nil
}

func (repo *courseRepository) QueryProgress(_ context.Context, userID string, contentIDs ...string) ([]course.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progress := make([]course.Progress, 0, len(contentIDs))
	for _, id := range contentIDs {
		if p, ok := repo.db.progress[progressKey{userID: userID, contentID: id}]; ok {
			progress = append(progress, p)
		}
	}
	return progress, nil
}
