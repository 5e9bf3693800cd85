package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/forum"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_forumApi(t *testing.T) {
	fx := setup(t)
	teacher := testutil.CreateUser(t, fx.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, fx.usrRepo, "Zero", "zero", "zero@test.cd", "", []string{user.RoleStudent}, true)
	teacherToken := fx.getToken(t, teacher)
	studentToken := fx.getToken(t, student)

	var f forum.Forum
	fx.do(t, http.MethodPost, "/v1/forums", teacherToken, forum.NewForum{Title: "Maths"}, http.StatusCreated, &f)
	forumPath := "/v1/forums/" + f.ID

	var post, reply forum.Post
	fx.do(t, http.MethodPost, forumPath+"/posts", studentToken, forum.NewPost{Body: "Help with fractions"}, http.StatusCreated, &post)
	fx.do(t, http.MethodPost, "/v1/posts/"+post.ID+"/replies", teacherToken, forum.UpdatePost{Body: "Sure"}, http.StatusCreated, &reply)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, post.ID, *reply.ParentID)

	fx.do(t, http.MethodGet, forumPath, studentToken, nil, http.StatusOK, &f)
	assert.Equal(t, 2, f.PostCount)

	fx.run(t, []httpTest{
		{name: "students cannot create forums", method: http.MethodPost, path: "/v1/forums", token: studentToken, body: marchallObj(t, forum.NewForum{Title: "Mine"}), wantCode: http.StatusForbidden},
		{name: "only authors edit posts", method: http.MethodPut, path: "/v1/posts/" + post.ID, token: fx.getToken(t, other), body: marchallObj(t, forum.UpdatePost{Body: "Hacked"}), wantCode: http.StatusForbidden},
		{name: "posts paged", path: forumPath + "/posts?limit=1", token: studentToken, wantData: marchallList(t, post)},
		{name: "unknown forum", path: "/v1/forums/7b4c1f7e-7a38-4f43-9f3b-0c8a2a1c8e51/posts", token: studentToken, wantCode: http.StatusNotFound},
	})

	t.Run("locked forums reject posts", func(t *testing.T) {
		fx.do(t, http.MethodPost, forumPath+"/lock", studentToken, nil, http.StatusForbidden, nil)
		fx.do(t, http.MethodPost, forumPath+"/lock", teacherToken, nil, http.StatusOK, &f)
		assert.True(t, f.Locked)
		fx.do(t, http.MethodPost, forumPath+"/posts", studentToken, forum.NewPost{Body: "Anyone?"}, http.StatusBadRequest, nil)
		fx.do(t, http.MethodPost, forumPath+"/unlock", teacherToken, nil, http.StatusOK, &f)
		assert.False(t, f.Locked)
	})

	t.Run("deleting a post deletes its replies", func(t *testing.T) {
		fx.do(t, http.MethodDelete, "/v1/posts/"+post.ID, studentToken, nil, http.StatusNoContent, nil)
		fx.do(t, http.MethodGet, "/v1/posts/"+reply.ID, studentToken, nil, http.StatusNotFound, nil)
		fx.do(t, http.MethodGet, forumPath, studentToken, nil, http.StatusOK, &f)
		assert.Zero(t, f.PostCount)
	})
}
