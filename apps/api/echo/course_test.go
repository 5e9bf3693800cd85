package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_courseApi_trailLifecycle(t *testing.T) {
	fx := setup(t)
	teacher := testutil.CreateUser(t, fx.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacherToken := fx.getToken(t, teacher)
	studentToken := fx.getToken(t, student)

	t.Run("students cannot create trails", func(t *testing.T) {
		fx.do(t, http.MethodPost, "/v1/trails", studentToken, course.NewTrail{Title: "Algebra"}, http.StatusForbidden, nil)
	})
	t.Run("title required", func(t *testing.T) {
		fx.do(t, http.MethodPost, "/v1/trails", teacherToken, course.NewTrail{Subject: "Maths"}, http.StatusBadRequest, nil)
	})

	var trail course.Trail
	fx.do(t, http.MethodPost, "/v1/trails", teacherToken, course.NewTrail{Title: " Algebra ", Subject: "Maths"}, http.StatusCreated, &trail)
	assert.Equal(t, "Algebra", trail.Title)
	assert.Equal(t, course.StatusDraft, trail.Status)

	trailPath := "/v1/trails/" + trail.ID
	fx.run(t, []httpTest{
		{name: "drafts are hidden from students", path: trailPath, token: studentToken, wantCode: http.StatusNotFound},
		{name: "draft listed to its teacher", path: "/v1/trails", token: teacherToken, wantData: marchallList(t, trail)},
		{name: "draft not listed to students", path: "/v1/trails", token: studentToken, wantData: marchallList(t)},
		{
			name: "empty trails cannot be published", method: http.MethodPost, path: trailPath + "/publish", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "a trail needs at least one published content to be published"}),
		},
	})

	var mod course.Module
	fx.do(t, http.MethodPost, trailPath+"/modules", teacherToken, course.NewModule{Title: "Equations"}, http.StatusCreated, &mod)
	var draft, published course.Content
	fx.do(t, http.MethodPost, "/v1/modules/"+mod.ID+"/contents", teacherToken,
		course.NewContent{Title: "Intro", Kind: course.KindText, Body: "x + 1 = 2"}, http.StatusCreated, &draft)
	fx.do(t, http.MethodPost, "/v1/modules/"+mod.ID+"/contents", teacherToken,
		course.NewContent{Title: "Linear", Kind: course.KindText, Body: "2x = 4", Status: course.StatusPublished}, http.StatusCreated, &published)

	fx.do(t, http.MethodPost, trailPath+"/publish", teacherToken, nil, http.StatusOK, &trail)
	assert.Equal(t, course.StatusPublished, trail.Status)

	t.Run("students see published contents only", func(t *testing.T) {
		var outline course.Outline
		fx.do(t, http.MethodGet, trailPath+"/outline", studentToken, nil, http.StatusOK, &outline)
		require.Len(t, outline.Modules, 1)
		require.Len(t, outline.Modules[0].Contents, 1)
		assert.Equal(t, published.ID, outline.Modules[0].Contents[0].ID)
	})

	t.Run("progress", func(t *testing.T) {
		fx.do(t, http.MethodPost, "/v1/contents/"+draft.ID+"/complete", studentToken, nil, http.StatusNotFound, nil)
		fx.do(t, http.MethodPost, "/v1/contents/"+published.ID+"/complete", studentToken, nil, http.StatusOK, nil)

		var progress course.TrailProgress
		fx.do(t, http.MethodGet, trailPath+"/progress", studentToken, nil, http.StatusOK, &progress)
		assert.Equal(t, 1, progress.Completed)
	})

	t.Run("reorder contents", func(t *testing.T) {
		var contents []course.Content
		fx.do(t, http.MethodPut, "/v1/modules/"+mod.ID+"/reorder", teacherToken,
			course.Reorder{IDs: []string{published.ID, draft.ID}}, http.StatusOK, &contents)
		require.Len(t, contents, 2)
		assert.Equal(t, published.ID, contents[0].ID)
		assert.Equal(t, draft.ID, contents[1].ID)
	})

	t.Run("reorder modules", func(t *testing.T) {
		var second course.Module
		fx.do(t, http.MethodPost, trailPath+"/modules", teacherToken, course.NewModule{Title: "Inequalities"}, http.StatusCreated, &second)

		var modules []course.Module
		fx.do(t, http.MethodPut, trailPath+"/modules/reorder", teacherToken,
			course.Reorder{IDs: []string{second.ID, mod.ID}}, http.StatusOK, &modules)
		require.Len(t, modules, 2)
		assert.Equal(t, second.ID, modules[0].ID)
		assert.Equal(t, mod.ID, modules[1].ID)
	})

	t.Run("other teachers cannot edit", func(t *testing.T) {
		other := testutil.CreateUser(t, fx.usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleTeacher}, true)
		title := "Mine"
		fx.do(t, http.MethodPut, trailPath, fx.getToken(t, other), course.UpdateTrail{Title: &title}, http.StatusForbidden, nil)
	})

	t.Run("delete", func(t *testing.T) {
		fx.do(t, http.MethodDelete, trailPath, teacherToken, nil, http.StatusNoContent, nil)
		fx.do(t, http.MethodGet, trailPath, teacherToken, nil, http.StatusNotFound, nil)
	})
}
