package forum

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const TopicKind = "forum"

// Event types published on the forum topic
const (
	EventPostCreated = "post.created"
	EventPostUpdated = "post.updated"
	EventPostDeleted = "post.deleted"
	EventLocked      = "forum.locked"
	EventUnlocked    = "forum.unlocked"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("forum not found")
	ErrPostNotFound = core.NewNotFoundError("post not found")

	errLocked         = "this forum is locked"
	errParentMismatch = "the parent post belongs to another forum"
)

type (
	Repository interface {
		CreateForum(ctx context.Context, f Forum) (Forum, error)
		// QueryForums returns the forums matching filter, most recently active first.
		QueryForums(ctx context.Context, filter QueryFilter) ([]Forum, error)
		GetForum(ctx context.Context, id string) (Forum, error)
		UpdateForum(ctx context.Context, f Forum) (Forum, error)
		DeleteForum(ctx context.Context, id string) error

		// CreatePost stores the post and bumps PostCount and LastPostAt of its forum.
		CreatePost(ctx context.Context, p Post) (Post, error)
		// QueryPosts returns a page of the posts of a forum, oldest first.
		QueryPosts(ctx context.Context, forumID string, page core.Page) ([]Post, error)
		GetPost(ctx context.Context, id string) (Post, error)
		UpdatePost(ctx context.Context, p Post) (Post, error)
		// DeletePost deletes the post with its replies and decrements PostCount accordingly.
		DeletePost(ctx context.Context, id string) error
	}

	Service struct {
		repo   Repository
		pub    core.EventPublisher
		logger core.Logger
	}
)

func NewService(repo Repository, pub core.EventPublisher, logger core.Logger) *Service {
	return &Service{repo: repo, pub: pub, logger: logger}
}

func (svc *Service) publish(ctx context.Context, forumID, typ string, data interface{}) {
	core.PublishEvent(ctx, svc.pub, svc.logger, core.Topic(TopicKind, forumID), typ, data)
}

func canModerate(actor user.User, f Forum) bool {
	return actor.IsAdmin() || (actor.IsTeacher() && f.AuthorID == actor.ID)
}

func (svc *Service) Create(ctx context.Context, actor user.User, nf NewForum) (Forum, error) {
	if !actor.IsStaff() {
		return Forum{}, core.ErrPermissionDenied
	}
	now := core.NowFunc()
	f := Forum{
		ID:          uuid.New().String(),
		AuthorID:    actor.ID,
		Title:       nf.Title,
		Description: nf.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nf.TrailID != "" {
		f.TrailID = &nf.TrailID
	}
	return svc.repo.CreateForum(ctx, f)
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Forum, error) {
	filter.Clean()
	forums, err := svc.repo.QueryForums(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying forums")
	}
	return forums, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Forum, error) {
	return svc.repo.GetForum(ctx, id)
}

func (svc *Service) getModerated(ctx context.Context, actor user.User, id string) (Forum, error) {
	f, err := svc.repo.GetForum(ctx, id)
	if err != nil {
		return Forum{}, err
	}
	if !canModerate(actor, f) {
		return Forum{}, core.ErrPermissionDenied
	}
	return f, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uf UpdateForum) (Forum, error) {
	f, err := svc.getModerated(ctx, actor, id)
	if err != nil {
		return Forum{}, err
	}
	if uf.Title != nil {
		f.Title = core.CleanString(*uf.Title)
	}
	if uf.Description != nil {
		f.Description = core.CleanString(*uf.Description)
	}
	f.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateForum(ctx, f)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.getModerated(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteForum(ctx, id)
}

func (svc *Service) Lock(ctx context.Context, actor user.User, id string) (Forum, error) {
	return svc.setLocked(ctx, actor, id, true)
}

func (svc *Service) Unlock(ctx context.Context, actor user.User, id string) (Forum, error) {
	return svc.setLocked(ctx, actor, id, false)
}

func (svc *Service) setLocked(ctx context.Context, actor user.User, id string, locked bool) (Forum, error) {
	f, err := svc.getModerated(ctx, actor, id)
	if err != nil {
		return Forum{}, err
	}
	if f.Locked == locked {
		return f, nil
	}
	f.Locked = locked
	f.UpdatedAt = core.NowFunc()
	if f, err = svc.repo.UpdateForum(ctx, f); err != nil {
		return Forum{}, errors.Wrap(err, "updating forum")
	}

	evt := EventUnlocked
	if locked {
		evt = EventLocked
	}
	svc.publish(ctx, f.ID, evt, f)
	return f, nil
}

// Post adds a post to an unlocked forum. A post with a ParentID is a reply to a post of the same forum.
func (svc *Service) Post(ctx context.Context, actor user.User, forumID string, np NewPost) (Post, error) {
	f, err := svc.repo.GetForum(ctx, forumID)
	if err != nil {
		return Post{}, err
	}
	if f.Locked {
		return Post{}, core.NewFieldError("body", errLocked)
	}

	p := Post{
		ID:        uuid.New().String(),
		ForumID:   f.ID,
		AuthorID:  actor.ID,
		Body:      np.Body,
		CreatedAt: core.NowFunc(),
	}
	if np.ParentID != "" {
		parent, err := svc.repo.GetPost(ctx, np.ParentID)
		if err != nil {
			if core.IsNotFound(err) {
				return Post{}, core.NewFieldError("parent_id", err.Error())
			}
			return Post{}, errors.Wrap(err, "finding parent post")
		}
		if parent.ForumID != f.ID {
			return Post{}, core.NewFieldError("parent_id", errParentMismatch)
		}
		p.ParentID = &parent.ID
	}

	if p, err = svc.repo.CreatePost(ctx, p); err != nil {
		return Post{}, errors.Wrap(err, "creating post")
	}
	svc.publish(ctx, f.ID, EventPostCreated, p)
	return p, nil
}

// Reply answers the post `postID` in its own forum.
func (svc *Service) Reply(ctx context.Context, actor user.User, postID string, up UpdatePost) (Post, error) {
	parent, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	return svc.Post(ctx, actor, parent.ForumID, NewPost{ParentID: parent.ID, Body: up.Body})
}

func (svc *Service) Posts(ctx context.Context, forumID string, page core.Page) ([]Post, error) {
	if _, err := svc.repo.GetForum(ctx, forumID); err != nil {
		return nil, err
	}
	page.Clean()
	return svc.repo.QueryPosts(ctx, forumID, page)
}

func (svc *Service) GetPost(ctx context.Context, id string) (Post, error) {
	return svc.repo.GetPost(ctx, id)
}

// EditPost lets the author rewrite their post.
func (svc *Service) EditPost(ctx context.Context, actor user.User, id string, up UpdatePost) (Post, error) {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if p.AuthorID != actor.ID {
		return Post{}, core.ErrPermissionDenied
	}
	f, err := svc.repo.GetForum(ctx, p.ForumID)
	if err != nil {
		return Post{}, errors.Wrap(err, "finding forum")
	}
	if f.Locked {
		return Post{}, core.NewFieldError("body", errLocked)
	}

	now := core.NowFunc()
	p.Body = up.Body
	p.EditedAt = &now
	if p, err = svc.repo.UpdatePost(ctx, p); err != nil {
		return Post{}, errors.Wrap(err, "updating post")
	}
	svc.publish(ctx, p.ForumID, EventPostUpdated, p)
	return p, nil
}

// DeletePost removes a post and its replies. Authors delete their own posts, staff delete any.
func (svc *Service) DeletePost(ctx context.Context, actor user.User, id string) error {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != actor.ID && !actor.IsStaff() {
		return core.ErrPermissionDenied
	}
	if err := svc.repo.DeletePost(ctx, p.ID); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	svc.publish(ctx, p.ForumID, EventPostDeleted, map[string]string{"id": p.ID})
	return nil
}
