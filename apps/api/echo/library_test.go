package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/library"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_libraryApi(t *testing.T) {
	fx := setup(t)
	teacher := testutil.CreateUser(t, fx.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	owner := testutil.CreateUser(t, fx.usrRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)
	teacherToken := fx.getToken(t, teacher)
	studentToken := fx.getToken(t, student)

	var zoo, math library.Resource
	fx.do(t, http.MethodPost, "/v1/library", teacherToken, library.NewResource{
		Title: "Zzz zoo", Kind: library.KindBook, URL: "https://example.com/zoo", Tags: []string{"Animals"},
	}, http.StatusCreated, &zoo)
	assert.Equal(t, []string{"animals"}, zoo.Tags)
	fx.do(t, http.MethodPost, "/v1/library", teacherToken, library.NewResource{
		Title: "Algebra basics", Subject: "Maths", Kind: library.KindArticle, URL: "https://example.com/algebra",
	}, http.StatusCreated, &math)

	fx.run(t, []httpTest{
		{name: "students cannot upload", method: http.MethodPost, path: "/v1/library", token: studentToken, body: marchallObj(t, library.NewResource{Title: "Mine", Kind: library.KindLink, URL: "https://example.com"}), wantCode: http.StatusForbidden},
		{name: "unknown kind", method: http.MethodPost, path: "/v1/library", token: teacherToken, body: marchallObj(t, library.NewResource{Title: "Mine", Kind: "lol", URL: "https://example.com"}), wantCode: http.StatusBadRequest},
		{name: "filter by tag", path: "/v1/library?tag=animals", token: studentToken, wantData: marchallList(t, zoo)},
		{name: "search query required", path: "/v1/library/search", token: studentToken, wantCode: http.StatusBadRequest},
		{name: "reindex needs an admin", method: http.MethodPost, path: "/v1/library/reindex", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "reindex needs a principal", method: http.MethodPost, path: "/v1/library/reindex", token: fx.getToken(t, admin), wantCode: http.StatusForbidden},
		{name: "reindex", method: http.MethodPost, path: "/v1/library/reindex", token: fx.getToken(t, owner), wantData: marchallObj(t, library.ReindexReport{Indexed: 2})},
	})

	t.Run("search ranks by similarity", func(t *testing.T) {
		var matches []library.Match
		fx.do(t, http.MethodGet, "/v1/library/search?q=algebra&threshold=0.1", studentToken, nil, http.StatusOK, &matches)
		require.NotEmpty(t, matches)
		assert.Equal(t, math.ID, matches[0].ID)
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
		}
	})
}
