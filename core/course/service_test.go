package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

type fixture struct {
	svc                     *course.Service
	repo                    course.Repository
	admin, teacher, student user.User
	otherTeacher            user.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewCourseRepository(db)
	return fixture{
		svc:          course.NewService(repo, testutil.NewLogger(core.NewTestConfig())),
		repo:         repo,
		admin:        testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true),
		teacher:      testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true),
		otherTeacher: testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleTeacher}, true),
		student:      testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true),
	}
}

func ids(mods []course.Module) []string {
	res := make([]string, 0, len(mods))
	for _, m := range mods {
		res = append(res, m.ID)
	}
	return res
}

func TestService_trailVisibility(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.CreateTrail(ctx, fx.student, course.NewTrail{Title: "Nope"})
	assert.Equal(t, core.ErrPermissionDenied, err)

	draft, err := fx.svc.CreateTrail(ctx, fx.teacher, course.NewTrail{Title: "Algebra", Subject: "math"})
	require.NoError(t, err)
	assert.Equal(t, course.StatusDraft, draft.Status)
	assert.Equal(t, fx.teacher.ID, draft.TeacherID)

	otherDraft := testutil.CreateTrail(t, fx.repo, fx.otherTeacher, "Chemistry", course.StatusDraft)
	published := testutil.CreateTrail(t, fx.repo, fx.otherTeacher, "Physics", course.StatusPublished)

	tests := []struct {
		name  string
		actor user.User
		want  []string
	}{
		{name: "admin sees everything", actor: fx.admin, want: []string{draft.ID, otherDraft.ID, published.ID}},
		{name: "teacher sees own drafts", actor: fx.teacher, want: []string{draft.ID, published.ID}},
		{name: "student sees published", actor: fx.student, want: []string{published.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trails, err := fx.svc.ListTrails(ctx, tt.actor, course.TrailFilter{}, nil)
			require.NoError(t, err)
			got := make([]string, 0, len(trails))
			for _, tr := range trails {
				got = append(got, tr.ID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	_, err = fx.svc.GetTrail(ctx, fx.student, draft.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = fx.svc.UpdateTrail(ctx, fx.otherTeacher, published.ID, course.UpdateTrail{})
	assert.Equal(t, core.ErrPermissionDenied, err)
	assert.Equal(t, core.ErrPermissionDenied, fx.svc.DeleteTrail(ctx, fx.student, published.ID))

	title := "  Linear Algebra "
	updated, err := fx.svc.UpdateTrail(ctx, fx.teacher, draft.ID, course.UpdateTrail{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", updated.Title)
	assert.Equal(t, "math", updated.Subject)

	require.NoError(t, fx.svc.DeleteTrail(ctx, fx.admin, otherDraft.ID))
	_, err = fx.svc.GetTrail(ctx, fx.admin, otherDraft.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_publish(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	tr := testutil.CreateTrail(t, fx.repo, fx.teacher, "Algebra", course.StatusDraft)
	mod, err := fx.svc.AddModule(ctx, fx.teacher, tr.ID, course.NewModule{Title: "Basics"})
	require.NoError(t, err)

	_, err = fx.svc.Publish(ctx, fx.teacher, tr.ID)
	assert.Error(t, err, "empty trails cannot be published")

	draftContent, err := fx.svc.AddContent(ctx, fx.teacher, mod.ID, course.NewContent{Title: "Intro", Kind: course.KindText, Body: "hello", Status: course.StatusDraft})
	require.NoError(t, err)
	_, err = fx.svc.Publish(ctx, fx.teacher, tr.ID)
	assert.Error(t, err, "draft contents do not count")

	status := course.StatusPublished
	_, err = fx.svc.UpdateContent(ctx, fx.teacher, draftContent.ID, course.UpdateContent{Status: &status})
	require.NoError(t, err)

	tr, err = fx.svc.Publish(ctx, fx.teacher, tr.ID)
	require.NoError(t, err)
	assert.True(t, tr.IsPublished())

	again, err := fx.svc.Publish(ctx, fx.teacher, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.UpdatedAt, again.UpdatedAt, "publishing twice is a no-op")

	_, err = fx.svc.Unpublish(ctx, fx.otherTeacher, tr.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
	tr, err = fx.svc.Unpublish(ctx, fx.teacher, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, course.StatusDraft, tr.Status)
}

func TestService_modulesAndContents(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	tr := testutil.CreateTrail(t, fx.repo, fx.teacher, "Algebra", course.StatusPublished)
	var mods []course.Module
	for _, title := range []string{"One", "Two", "Three"} {
		m, err := fx.svc.AddModule(ctx, fx.teacher, tr.ID, course.NewModule{Title: title})
		require.NoError(t, err)
		assert.Equal(t, len(mods), m.Position)
		mods = append(mods, m)
	}

	_, err := fx.svc.AddModule(ctx, fx.student, tr.ID, course.NewModule{Title: "Nope"})
	assert.Equal(t, core.ErrPermissionDenied, err)

	t.Run("reorder", func(t *testing.T) {
		_, err := fx.svc.ReorderModules(ctx, fx.teacher, tr.ID, []string{mods[0].ID, mods[1].ID})
		assert.Error(t, err, "every module must be listed")
		_, err = fx.svc.ReorderModules(ctx, fx.teacher, tr.ID, []string{mods[0].ID, mods[0].ID, mods[1].ID})
		assert.Error(t, err, "no duplicates")

		got, err := fx.svc.ReorderModules(ctx, fx.teacher, tr.ID, []string{mods[2].ID, mods[0].ID, mods[1].ID})
		require.NoError(t, err)
		assert.Equal(t, []string{mods[2].ID, mods[0].ID, mods[1].ID}, ids(got))
		for i, m := range got {
			assert.Equal(t, i, m.Position)
		}
	})

	t.Run("delete closes the gap", func(t *testing.T) {
		require.NoError(t, fx.svc.DeleteModule(ctx, fx.teacher, mods[0].ID))
		got, err := fx.svc.ListModules(ctx, fx.student, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{mods[2].ID, mods[1].ID}, ids(got))
		assert.Equal(t, 0, got[0].Position)
		assert.Equal(t, 1, got[1].Position)
	})

	t.Run("students only see published contents", func(t *testing.T) {
		pub := testutil.CreateContent(t, fx.repo, mods[1], "Published", course.StatusPublished, 0)
		draft := testutil.CreateContent(t, fx.repo, mods[1], "Draft", course.StatusDraft, 1)

		got, err := fx.svc.ListContents(ctx, fx.student, mods[1].ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, pub.ID, got[0].ID)

		got, err = fx.svc.ListContents(ctx, fx.teacher, mods[1].ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		_, err = fx.svc.GetContent(ctx, fx.student, draft.ID)
		assert.True(t, core.IsNotFound(err))

		outline, err := fx.svc.Outline(ctx, fx.student, tr.ID)
		require.NoError(t, err)
		require.Len(t, outline.Modules, 2)
		assert.Empty(t, outline.Modules[0].Contents)
		assert.Len(t, outline.Modules[1].Contents, 1)
	})

	t.Run("media contents need a url", func(t *testing.T) {
		c, err := fx.svc.AddContent(ctx, fx.teacher, mods[2].ID, course.NewContent{Title: "Clip", Kind: course.KindVideo, URL: "https://video.test/1", Status: course.StatusDraft})
		require.NoError(t, err)
		empty := ""
		_, err = fx.svc.UpdateContent(ctx, fx.teacher, c.ID, course.UpdateContent{URL: &empty})
		assert.Error(t, err)
	})
}

func TestService_progress(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	tr := testutil.CreateTrail(t, fx.repo, fx.teacher, "Algebra", course.StatusPublished)
	m1 := testutil.CreateModule(t, fx.repo, tr, "One", 0)
	m2 := testutil.CreateModule(t, fx.repo, tr, "Two", 1)
	c1 := testutil.CreateContent(t, fx.repo, m1, "C1", course.StatusPublished, 0)
	testutil.CreateContent(t, fx.repo, m1, "C2", course.StatusPublished, 1)
	c3 := testutil.CreateContent(t, fx.repo, m2, "C3", course.StatusPublished, 0)
	testutil.CreateContent(t, fx.repo, m2, "Draft", course.StatusDraft, 1)

	tp, err := fx.svc.TrailProgress(ctx, fx.student, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, tp.Completed)
	assert.Equal(t, 3, tp.Total)
	assert.Equal(t, 0.0, tp.Percentage)

	first, err := fx.svc.MarkCompleted(ctx, fx.student, c1.ID)
	require.NoError(t, err)
	again, err := fx.svc.MarkCompleted(ctx, fx.student, c1.ID)
	require.NoError(t, err)
	assert.True(t, first.CompletedAt.Equal(again.CompletedAt), "the first completion is kept")

	_, err = fx.svc.MarkCompleted(ctx, fx.student, c3.ID)
	require.NoError(t, err)

	tp, err = fx.svc.TrailProgress(ctx, fx.student, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, tp.Completed)
	assert.Equal(t, 3, tp.Total)
	assert.Equal(t, 66.67, tp.Percentage)
	require.Len(t, tp.Modules, 2)
	assert.Equal(t, course.ModuleProgress{ModuleID: m1.ID, Completed: 1, Total: 2}, tp.Modules[0])
	assert.Equal(t, course.ModuleProgress{ModuleID: m2.ID, Completed: 1, Total: 1}, tp.Modules[1])

	other, err := fx.svc.TrailProgress(ctx, fx.teacher, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, other.Completed)
}

func TestNewContent_Validate(t *testing.T) {
	validate := testutil.NewValidator()
	tests := []struct {
		name    string
		nc      course.NewContent
		wantErr bool
	}{
		{name: "text", nc: course.NewContent{Title: "Intro", Kind: "Text", Body: "hello"}},
		{name: "text without body", nc: course.NewContent{Title: "Intro", Kind: course.KindText}, wantErr: true},
		{name: "unknown kind", nc: course.NewContent{Title: "Intro", Kind: "podcast"}, wantErr: true},
		{name: "video without url", nc: course.NewContent{Title: "Clip", Kind: course.KindVideo}, wantErr: true},
		{name: "video", nc: course.NewContent{Title: "Clip", Kind: course.KindVideo, URL: "https://video.test/1"}},
		{name: "bad status", nc: course.NewContent{Title: "Intro", Kind: course.KindText, Body: "x", Status: "archived"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := tt.nc
			err := nc.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, course.StatusDraft, nc.Status)
		})
	}
}
