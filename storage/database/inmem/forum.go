package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/forum"
)

type forumRepository struct {
	db *DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *DB) *forumRepository {
	return &forumRepository{db: db}
}

func cloneForum(f forum.Forum) forum.Forum {
	f.TrailID = copyString(f.TrailID)
	if f.LastPostAt != nil {
		t := *f.LastPostAt
		f.LastPostAt = &t
	}
	return f
}

func clonePost(p forum.Post) forum.Post {
	p.ParentID = copyString(p.ParentID)
	if p.EditedAt != nil {
		t := *p.EditedAt
		p.EditedAt = &t
	}
	return p
}

func (repo *forumRepository) CreateForum(_ context.Context, f forum.Forum) (forum.Forum, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.forums[f.ID] = cloneForum(f)
	return f, nil
}

func (repo *forumRepository) QueryForums(_ context.Context, filter forum.QueryFilter) ([]forum.Forum, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	forums := make([]forum.Forum, 0, len(repo.db.forums))
	for _, f := range repo.db.forums {
		if filter.TrailID != "" && (f.TrailID == nil || *f.TrailID != filter.TrailID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(f.Title), search) && !strings.Contains(strings.ToLower(f.Description), search) {
			continue
		}
		forums = append(forums, cloneForum(f))
	}
	sort.Slice(forums, func(i, j int) bool {
		a, b := lastActivity(forums[i]), lastActivity(forums[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return forums[i].ID < forums[j].ID
	})
	return forums, nil
}

func lastActivity(f forum.Forum) time.Time {
	if f.LastPostAt != nil {
		return *f.LastPostAt
	}
	return f.CreatedAt
}

func (repo *forumRepository) GetForum(_ context.Context, id string) (forum.Forum, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if f, ok := repo.db.forums[id]; ok {
		return cloneForum(f), nil
	}
	return forum.Forum{}, forum.ErrNotFound
}

func (repo *forumRepository) UpdateForum(_ context.Context, f forum.Forum) (forum.Forum, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.forums[f.ID]
	if !ok {
		return forum.Forum{}, forum.ErrNotFound
	}
	// counters are owned by the posts
	f.PostCount = orig.PostCount
	f.LastPostAt = orig.LastPostAt
	repo.db.forums[f.ID] = cloneForum(f)
	return cloneForum(f), nil
}

func (repo *forumRepository) DeleteForum(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.forums[id]; !ok {
		return forum.ErrNotFound
	}
	delete(repo.db.forums, id)
	for pid, p := range repo.db.posts {
		if p.ForumID == id {
			delete(repo.db.posts, pid)
		}
	}
	return nil
}

func (repo *forumRepository) CreatePost(_ context.Context, p forum.Post) (forum.Post, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	f, ok := repo.db.forums[p.ForumID]
	if !ok {
		return forum.Post{}, forum.ErrNotFound
	}
	repo.db.posts[p.ID] = clonePost(p)
	f.PostCount++
	createdAt := p.CreatedAt
	f.LastPostAt = &createdAt
	repo.db.forums[f.ID] = f
	return p, nil
}

func (repo *forumRepository) QueryPosts(_ context.Context, forumID string, page core.Page) ([]forum.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	posts := make([]forum.Post, 0)
	for _, p := range repo.db.posts {
		if p.ForumID == forumID {
			posts = append(posts, clonePost(p))
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.Before(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
	if page.Offset >= len(posts) {
		return []forum.Post{}, nil
	}
	posts = posts[page.Offset:]
	if page.Limit > 0 && len(posts) > page.Limit {
		posts = posts[:page.Limit]
	}
	return posts, nil
}

func (repo *forumRepository) GetPost(_ context.Context, id string) (forum.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if p, ok := repo.db.posts[id]; ok {
		return clonePost(p), nil
	}
	return forum.Post{}, forum.ErrPostNotFound
}

func (repo *forumRepository) UpdatePost(_ context.Context, p forum.Post) (forum.Post, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.posts[p.ID]; !ok {
		return forum.Post{}, forum.ErrPostNotFound
	}
	repo.db.posts[p.ID] = clonePost(p)
	return p, nil
}

func (repo *forumRepository) DeletePost(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	p, ok := repo.db.posts[id]
	if !ok {
		return forum.ErrPostNotFound
	}

	// collect the post and its replies, at any depth
	doomed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for pid, post := range repo.db.posts {
			if !doomed[pid] && post.ParentID != nil && doomed[*post.ParentID] {
				doomed[pid] = true
				grew = true
			}
		}
	}
	for pid := range doomed {
		delete(repo.db.posts, pid)
	}

	if f, ok := repo.db.forums[p.ForumID]; ok {
		f.PostCount -= len(doomed)
		if f.PostCount < 0 {
			f.PostCount = 0
		}
		repo.db.forums[f.ID] = f
	}
	return nil
}
