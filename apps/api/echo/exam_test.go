package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

const examText = `1. What is 2 + 2?
A) 3
B) 4
C) 5
Answer: B

2. Which is a prime number?
A) 4
B) 6
C) 7
Answer: C

3. A question without options
Answer: A
`

func Test_examApi(t *testing.T) {
	fx := setup(t)
	teacher := testutil.CreateUser(t, fx.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacherToken := fx.getToken(t, teacher)
	studentToken := fx.getToken(t, student)

	t.Run("parse is a dry run", func(t *testing.T) {
		var res exam.ParseResult
		fx.do(t, http.MethodPost, "/v1/exams/parse", teacherToken, exam.ParseRequest{Text: examText}, http.StatusOK, &res)
		assert.Len(t, res.Questions, 2)
		assert.NotEmpty(t, res.Errors)

		var qs []exam.Question
		fx.do(t, http.MethodGet, "/v1/exams/questions", teacherToken, nil, http.StatusOK, &qs)
		assert.Empty(t, qs)
	})

	fx.run(t, []httpTest{
		{name: "students cannot import", method: http.MethodPost, path: "/v1/exams/import", token: studentToken, body: marchallObj(t, exam.ImportRequest{Text: examText}), wantCode: http.StatusForbidden},
		{name: "text required", method: http.MethodPost, path: "/v1/exams/import", token: teacherToken, body: marchallObj(t, exam.ImportRequest{}), wantCode: http.StatusBadRequest},
		{name: "nothing to import", method: http.MethodPost, path: "/v1/exams/import", token: teacherToken, body: marchallObj(t, exam.ImportRequest{Text: "just prose"}), wantCode: http.StatusBadRequest},
	})

	var imported exam.ImportResult
	fx.do(t, http.MethodPost, "/v1/exams/import", teacherToken, exam.ImportRequest{Text: examText}, http.StatusCreated, &imported)
	require.Len(t, imported.Imported, 2)
	q1, q2 := imported.Imported[0], imported.Imported[1]

	t.Run("answers hidden from students", func(t *testing.T) {
		var qs []exam.Question
		fx.do(t, http.MethodGet, "/v1/exams/questions", studentToken, nil, http.StatusOK, &qs)
		require.Len(t, qs, 2)
		for _, q := range qs {
			assert.Empty(t, q.Answer)
		}
	})

	t.Run("grade", func(t *testing.T) {
		var res exam.GradeResult
		fx.do(t, http.MethodPost, "/v1/exams/grade", studentToken, exam.GradeRequest{Answers: map[string]string{
			q1.ID: "b",
			q2.ID: "A",
		}}, http.StatusOK, &res)
		assert.Equal(t, 1, res.Score)
		assert.Equal(t, 2, res.Total)
		assert.InDelta(t, 50.0, res.Percentage, 0.001)
		for _, r := range res.Results {
			assert.Empty(t, r.Answer, "grading does not leak answers to students")
		}

		fx.do(t, http.MethodPost, "/v1/exams/grade", teacherToken, exam.GradeRequest{Answers: map[string]string{q2.ID: "Z"}}, http.StatusOK, &res)
		require.Len(t, res.Results, 1)
		assert.Equal(t, "C", res.Results[0].Answer)
	})

	t.Run("import into a trail", func(t *testing.T) {
		other := testutil.CreateUser(t, fx.usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleTeacher}, true)
		trail := testutil.CreateTrail(t, fx.courseRepo, other, "Algebra", course.StatusPublished)
		fx.do(t, http.MethodPost, "/v1/exams/import", teacherToken, exam.ImportRequest{Text: examText, TrailID: trail.ID}, http.StatusForbidden, nil)
		fx.do(t, http.MethodPost, "/v1/exams/import", teacherToken, exam.ImportRequest{Text: examText, TrailID: "7b4c1f7e-7a38-4f43-9f3b-0c8a2a1c8e51"}, http.StatusBadRequest, nil)
		fx.do(t, http.MethodPost, "/v1/exams/import", fx.getToken(t, other), exam.ImportRequest{Text: examText, TrailID: trail.ID}, http.StatusCreated, nil)
	})

	t.Run("delete", func(t *testing.T) {
		fx.do(t, http.MethodDelete, "/v1/exams/questions/"+q1.ID, studentToken, nil, http.StatusForbidden, nil)
		fx.do(t, http.MethodDelete, "/v1/exams/questions/"+q1.ID, teacherToken, nil, http.StatusNoContent, nil)
		fx.do(t, http.MethodDelete, "/v1/exams/questions/"+q1.ID, teacherToken, nil, http.StatusNotFound, nil)
	})
}
