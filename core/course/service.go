package course

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrTrailNotFound   = core.NewNotFoundError("trail not found")
	ErrModuleNotFound  = core.NewNotFoundError("module not found")
	ErrContentNotFound = core.NewNotFoundError("content not found")

	errPublishEmptyTrail = "a trail needs at least one published content to be published"
	errReorderMismatch   = "ids must list every item exactly once"
)

type (
	Repository interface {
		CreateTrail(ctx context.Context, t Trail) (Trail, error)
		QueryTrails(ctx context.Context, filter TrailFilter, ordering []core.DBOrdering) ([]Trail, error)
		GetTrail(ctx context.Context, id string) (Trail, error)
		UpdateTrail(ctx context.Context, t Trail) (Trail, error)
		// DeleteTrail deletes the trail with its modules, contents and progress.
		DeleteTrail(ctx context.Context, id string) error

		CreateModule(ctx context.Context, m Module) (Module, error)
		// QueryModules returns the modules of a trail ordered by position.
		QueryModules(ctx context.Context, trailID string) ([]Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		DeleteModule(ctx context.Context, id string) error
		SetModulePositions(ctx context.Context, trailID string, ids []string) error

		CreateContent(ctx context.Context, c Content) (Content, error)
		// QueryContents returns the contents of the given modules ordered by position.
		QueryContents(ctx context.Context, moduleIDs ...string) ([]Content, error)
		GetContent(ctx context.Context, id string) (Content, error)
		UpdateContent(ctx context.Context, c Content) (Content, error)
		DeleteContent(ctx context.Context, id string) error
		SetContentPositions(ctx context.Context, moduleID string, ids []string) error

		// SaveProgress is idempotent: an existing completion is kept as is.
		SaveProgress(ctx context.Context, p Progress) (Progress, error)
		QueryProgress(ctx context.Context, userID string, contentIDs ...string) ([]Progress, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// canEdit reports whether `actor` may mutate the trail and its children.
func canEdit(actor user.User, t Trail) bool {
	return actor.IsAdmin() || (actor.IsTeacher() && t.TeacherID == actor.ID)
}

// Trails

func (svc *Service) CreateTrail(ctx context.Context, actor user.User, nt NewTrail) (Trail, error) {
	if !actor.IsStaff() {
		return Trail{}, core.ErrPermissionDenied
	}
	now := core.NowFunc()
	return svc.repo.CreateTrail(ctx, Trail{
		ID:          uuid.New().String(),
		TeacherID:   actor.ID,
		Title:       nt.Title,
		Description: nt.Description,
		Subject:     nt.Subject,
		CoverURL:    nt.CoverURL,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// ListTrails returns the trails matching `filter` that `actor` can see:
// admins see everything, teachers see published trails and their own drafts, others see published trails.
func (svc *Service) ListTrails(ctx context.Context, actor user.User, filter TrailFilter, ordering []core.DBOrdering) ([]Trail, error) {
	filter.Clean()
	switch {
	case actor.IsAdmin():
	case actor.IsTeacher():
		filter.VisibleTo = actor.ID
	default:
		filter.PublishedOnly = true
	}
	trails, err := svc.repo.QueryTrails(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying trails")
	}
	return trails, nil
}

// GetTrail returns the trail if `actor` can see it, ErrTrailNotFound otherwise.
func (svc *Service) GetTrail(ctx context.Context, actor user.User, id string) (Trail, error) {
	t, err := svc.repo.GetTrail(ctx, id)
	if err != nil {
		return Trail{}, err
	}
	if !t.IsPublished() && !canEdit(actor, t) {
		return Trail{}, ErrTrailNotFound
	}
	return t, nil
}

// getEditableTrail returns the trail if `actor` can mutate it.
func (svc *Service) getEditableTrail(ctx context.Context, actor user.User, id string) (Trail, error) {
	t, err := svc.GetTrail(ctx, actor, id)
	if err != nil {
		return Trail{}, err
	}
	if !canEdit(actor, t) {
		return Trail{}, core.ErrPermissionDenied
	}
	return t, nil
}

func (svc *Service) UpdateTrail(ctx context.Context, actor user.User, id string, ut UpdateTrail) (Trail, error) {
	t, err := svc.getEditableTrail(ctx, actor, id)
	if err != nil {
		return Trail{}, err
	}
	if ut.Title != nil {
		t.Title = core.CleanString(*ut.Title)
	}
	if ut.Description != nil {
		t.Description = core.CleanString(*ut.Description)
	}
	if ut.Subject != nil {
		t.Subject = core.CleanString(*ut.Subject)
	}
	if ut.CoverURL != nil {
		t.CoverURL = core.CleanString(*ut.CoverURL)
	}
	t.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateTrail(ctx, t)
}

func (svc *Service) DeleteTrail(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.getEditableTrail(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteTrail(ctx, id)
}

// Publish makes the trail visible to students. It needs at least one published content.
func (svc *Service) Publish(ctx context.Context, actor user.User, id string) (Trail, error) {
	t, err := svc.getEditableTrail(ctx, actor, id)
	if err != nil {
		return Trail{}, err
	}
	if t.IsPublished() {
		return t, nil
	}

	outline, err := svc.outline(ctx, t, true)
	if err != nil {
		return Trail{}, err
	}
	var published int
	for _, mod := range outline.Modules {
		for _, c := range mod.Contents {
			if c.IsPublished() {
				published++
			}
		}
	}
	if published == 0 {
		return Trail{}, core.NewFieldError("status", errPublishEmptyTrail)
	}

	t.Status = StatusPublished
	t.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateTrail(ctx, t)
}

func (svc *Service) Unpublish(ctx context.Context, actor user.User, id string) (Trail, error) {
	t, err := svc.getEditableTrail(ctx, actor, id)
	if err != nil {
		return Trail{}, err
	}
	if !t.IsPublished() {
		return t, nil
	}
	t.Status = StatusDraft
	t.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateTrail(ctx, t)
}

// Outline returns the trail with its modules and contents. Drafts are only listed to editors.
func (svc *Service) Outline(ctx context.Context, actor user.User, id string) (Outline, error) {
	t, err := svc.GetTrail(ctx, actor, id)
	if err != nil {
		return Outline{}, err
	}
	return svc.outline(ctx, t, canEdit(actor, t))
}

func (svc *Service) outline(ctx context.Context, t Trail, withDrafts bool) (Outline, error) {
	mods, err := svc.repo.QueryModules(ctx, t.ID)
	if err != nil {
		return Outline{}, errors.Wrap(err, "querying modules")
	}
	ids := make([]string, 0, len(mods))
	for _, m := range mods {
		ids = append(ids, m.ID)
	}
	var contents []Content
	if len(ids) > 0 {
		if contents, err = svc.repo.QueryContents(ctx, ids...); err != nil {
			return Outline{}, errors.Wrap(err, "querying contents")
		}
	}

	byModule := make(map[string][]Content, len(mods))
	for _, c := range contents {
		if c.IsPublished() || withDrafts {
			byModule[c.ModuleID] = append(byModule[c.ModuleID], c)
		}
	}

	outline := Outline{Trail: t, Modules: make([]ModuleOutline, 0, len(mods))}
	for _, m := range mods {
		cs := byModule[m.ID]
		if cs == nil {
			cs = []Content{}
		}
		outline.Modules = append(outline.Modules, ModuleOutline{Module: m, Contents: cs})
	}
	return outline, nil
}

// Modules

func (svc *Service) ListModules(ctx context.Context, actor user.User, trailID string) ([]Module, error) {
	if _, err := svc.GetTrail(ctx, actor, trailID); err != nil {
		return nil, err
	}
	return svc.repo.QueryModules(ctx, trailID)
}

// AddModule appends a module at the end of the trail.
func (svc *Service) AddModule(ctx context.Context, actor user.User, trailID string, nm NewModule) (Module, error) {
	t, err := svc.getEditableTrail(ctx, actor, trailID)
	if err != nil {
		return Module{}, err
	}
	mods, err := svc.repo.QueryModules(ctx, t.ID)
	if err != nil {
		return Module{}, errors.Wrap(err, "querying modules")
	}
	now := core.NowFunc()
	return svc.repo.CreateModule(ctx, Module{
		ID:          uuid.New().String(),
		TrailID:     t.ID,
		Title:       nm.Title,
		Description: nm.Description,
		Position:    len(mods),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// getModule returns the module with its trail, checking that `actor` can see the trail.
func (svc *Service) getModule(ctx context.Context, actor user.User, id string) (Module, Trail, error) {
	m, err := svc.repo.GetModule(ctx, id)
	if err != nil {
		return Module{}, Trail{}, err
	}
	t, err := svc.GetTrail(ctx, actor, m.TrailID)
	if err != nil {
		if core.IsNotFound(err) {
			return Module{}, Trail{}, ErrModuleNotFound
		}
		return Module{}, Trail{}, err
	}
	return m, t, nil
}

func (svc *Service) GetModule(ctx context.Context, actor user.User, id string) (Module, error) {
	m, _, err := svc.getModule(ctx, actor, id)
	return m, err
}

func (svc *Service) getEditableModule(ctx context.Context, actor user.User, id string) (Module, Trail, error) {
	m, t, err := svc.getModule(ctx, actor, id)
	if err != nil {
		return Module{}, Trail{}, err
	}
	if !canEdit(actor, t) {
		return Module{}, Trail{}, core.ErrPermissionDenied
	}
	return m, t, nil
}

func (svc *Service) UpdateModule(ctx context.Context, actor user.User, id string, um UpdateModule) (Module, error) {
	m, _, err := svc.getEditableModule(ctx, actor, id)
	if err != nil {
		return Module{}, err
	}
	if um.Title != nil {
		m.Title = core.CleanString(*um.Title)
	}
	if um.Description != nil {
		m.Description = core.CleanString(*um.Description)
	}
	m.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateModule(ctx, m)
}

// DeleteModule deletes the module with its contents and closes the gap in positions.
func (svc *Service) DeleteModule(ctx context.Context, actor user.User, id string) error {
	m, t, err := svc.getEditableModule(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteModule(ctx, m.ID); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	mods, err := svc.repo.QueryModules(ctx, t.ID)
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	ids := make([]string, 0, len(mods))
	for _, mod := range mods {
		ids = append(ids, mod.ID)
	}
	return svc.repo.SetModulePositions(ctx, t.ID, ids)
}

// ReorderModules sets the positions of the trail's modules to the order of `ids`.
func (svc *Service) ReorderModules(ctx context.Context, actor user.User, trailID string, ids []string) ([]Module, error) {
	t, err := svc.getEditableTrail(ctx, actor, trailID)
	if err != nil {
		return nil, err
	}
	mods, err := svc.repo.QueryModules(ctx, t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	current := make([]string, 0, len(mods))
	for _, m := range mods {
		current = append(current, m.ID)
	}
	if !isPermutation(current, ids) {
		return nil, core.NewFieldError("ids", errReorderMismatch)
	}
	if err := svc.repo.SetModulePositions(ctx, t.ID, ids); err != nil {
		return nil, errors.Wrap(err, "setting module positions")
	}
	return svc.repo.QueryModules(ctx, t.ID)
}

// Contents

// ListContents returns the contents of a module; drafts are only listed to editors.
func (svc *Service) ListContents(ctx context.Context, actor user.User, moduleID string) ([]Content, error) {
	m, t, err := svc.getModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	contents, err := svc.repo.QueryContents(ctx, m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	if canEdit(actor, t) {
		return contents, nil
	}
	published := make([]Content, 0, len(contents))
	for _, c := range contents {
		if c.IsPublished() {
			published = append(published, c)
		}
	}
	return published, nil
}

// AddContent appends a content at the end of the module.
func (svc *Service) AddContent(ctx context.Context, actor user.User, moduleID string, nc NewContent) (Content, error) {
	m, _, err := svc.getEditableModule(ctx, actor, moduleID)
	if err != nil {
		return Content{}, err
	}
	contents, err := svc.repo.QueryContents(ctx, m.ID)
	if err != nil {
		return Content{}, errors.Wrap(err, "querying contents")
	}
	now := core.NowFunc()
	return svc.repo.CreateContent(ctx, Content{
		ID:              uuid.New().String(),
		ModuleID:        m.ID,
		Title:           nc.Title,
		Kind:            nc.Kind,
		Body:            nc.Body,
		URL:             nc.URL,
		DurationMinutes: nc.DurationMinutes,
		Position:        len(contents),
		Status:          nc.Status,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *Service) getContent(ctx context.Context, actor user.User, id string) (Content, Trail, error) {
	c, err := svc.repo.GetContent(ctx, id)
	if err != nil {
		return Content{}, Trail{}, err
	}
	_, t, err := svc.getModule(ctx, actor, c.ModuleID)
	if err != nil {
		if core.IsNotFound(err) {
			return Content{}, Trail{}, ErrContentNotFound
		}
		return Content{}, Trail{}, err
	}
	if !c.IsPublished() && !canEdit(actor, t) {
		return Content{}, Trail{}, ErrContentNotFound
	}
	return c, t, nil
}

func (svc *Service) GetContent(ctx context.Context, actor user.User, id string) (Content, error) {
	c, _, err := svc.getContent(ctx, actor, id)
	return c, err
}

func (svc *Service) getEditableContent(ctx context.Context, actor user.User, id string) (Content, error) {
	c, t, err := svc.getContent(ctx, actor, id)
	if err != nil {
		return Content{}, err
	}
	if !canEdit(actor, t) {
		return Content{}, core.ErrPermissionDenied
	}
	return c, nil
}

func (svc *Service) UpdateContent(ctx context.Context, actor user.User, id string, uc UpdateContent) (Content, error) {
	c, err := svc.getEditableContent(ctx, actor, id)
	if err != nil {
		return Content{}, err
	}
	if uc.Title != nil {
		c.Title = core.CleanString(*uc.Title)
	}
	if uc.Body != nil {
		c.Body = *uc.Body
	}
	if uc.URL != nil {
		c.URL = core.CleanString(*uc.URL)
	}
	if uc.DurationMinutes != nil {
		c.DurationMinutes = *uc.DurationMinutes
	}
	if uc.Status != nil {
		c.Status = core.CleanString(*uc.Status, true /* lower */)
	}
	if kindRequiresURL[c.Kind] && c.URL == "" {
		return Content{}, core.NewFieldError("url", "this field is required")
	}
	c.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateContent(ctx, c)
}

func (svc *Service) DeleteContent(ctx context.Context, actor user.User, id string) error {
	c, err := svc.getEditableContent(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteContent(ctx, c.ID); err != nil {
		return errors.Wrap(err, "deleting content")
	}
	contents, err := svc.repo.QueryContents(ctx, c.ModuleID)
	if err != nil {
		return errors.Wrap(err, "querying contents")
	}
	ids := make([]string, 0, len(contents))
	for _, content := range contents {
		ids = append(ids, content.ID)
	}
	return svc.repo.SetContentPositions(ctx, c.ModuleID, ids)
}

// ReorderContents sets the positions of the module's contents to the order of `ids`.
func (svc *Service) ReorderContents(ctx context.Context, actor user.User, moduleID string, ids []string) ([]Content, error) {
	m, _, err := svc.getEditableModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	contents, err := svc.repo.QueryContents(ctx, m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}
	current := make([]string, 0, len(contents))
	for _, c := range contents {
		current = append(current, c.ID)
	}
	if !isPermutation(current, ids) {
		return nil, core.NewFieldError("ids", errReorderMismatch)
	}
	if err := svc.repo.SetContentPositions(ctx, m.ID, ids); err != nil {
		return nil, errors.Wrap(err, "setting content positions")
	}
	return svc.repo.QueryContents(ctx, m.ID)
}

// Progress

// MarkCompleted records that `actor` completed the content. Marking twice keeps the first completion.
func (svc *Service) MarkCompleted(ctx context.Context, actor user.User, contentID string) (Progress, error) {
	c, _, err := svc.getContent(ctx, actor, contentID)
	if err != nil {
		return Progress{}, err
	}
	return svc.repo.SaveProgress(ctx, Progress{UserID: actor.ID, ContentID: c.ID, CompletedAt: core.NowFunc()})
}

// TrailProgress counts the published contents `actor` completed, per module and overall.
func (svc *Service) TrailProgress(ctx context.Context, actor user.User, trailID string) (TrailProgress, error) {
	t, err := svc.GetTrail(ctx, actor, trailID)
	if err != nil {
		return TrailProgress{}, err
	}
	outline, err := svc.outline(ctx, t, false)
	if err != nil {
		return TrailProgress{}, err
	}

	var contentIDs []string
	for _, mod := range outline.Modules {
		for _, c := range mod.Contents {
			contentIDs = append(contentIDs, c.ID)
		}
	}
	done := make(map[string]bool, len(contentIDs))
	if len(contentIDs) > 0 {
		progress, err := svc.repo.QueryProgress(ctx, actor.ID, contentIDs...)
		if err != nil {
			return TrailProgress{}, errors.Wrap(err, "querying progress")
		}
		for _, p := range progress {
			done[p.ContentID] = true
		}
	}

	tp := TrailProgress{TrailID: t.ID, Modules: make([]ModuleProgress, 0, len(outline.Modules))}
	for _, mod := range outline.Modules {
		mp := ModuleProgress{ModuleID: mod.ID, Total: len(mod.Contents)}
		for _, c := range mod.Contents {
			if done[c.ID] {
				mp.Completed++
			}
		}
		tp.Completed += mp.Completed
		tp.Total += mp.Total
		tp.Modules = append(tp.Modules, mp)
	}
	if tp.Total > 0 {
		tp.Percentage = math.Round(float64(tp.Completed)*10000/float64(tp.Total)) / 100
	}
	return tp, nil
}

func isPermutation(current, ids []string) bool {
	if len(current) != len(ids) {
		return false
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}
