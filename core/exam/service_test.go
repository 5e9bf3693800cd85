package exam_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

const examText = `1. What is 2 + 2?
A) 3
B) 4
Answer: B

2. Which is a prime number?
A) 4
B) 7
Answer: B

3. Broken
Answer: A
`

var (
	teacher = user.User{ID: "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0001", Username: "teacher", Roles: []string{user.RoleTeacher}, IsActive: true}
	other   = user.User{ID: "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0002", Username: "other", Roles: []string{user.RoleTeacher}, IsActive: true}
	admin   = user.User{ID: "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0003", Username: "admin", Roles: []string{user.RoleAdmin}, IsActive: true}
	student = user.User{ID: "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0004", Username: "student", Roles: []string{user.RoleStudent}, IsActive: true}
)

// newService returns a service over a fresh in-memory DB holding one trail of `teacher`.
func newService(t *testing.T) (*exam.Service, course.Trail) {
	t.Helper()
	db := inmemdb.Open()
	courseRepo := inmemdb.NewCourseRepository(db)
	trail := testutil.CreateTrail(t, courseRepo, teacher, "Arithmetic", course.StatusPublished)
	return exam.NewService(inmemdb.NewExamRepository(db), courseRepo, testutil.NewLogger(core.NewTestConfig())), trail
}

func TestService_Import(t *testing.T) {
	svc, trail := newService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, student, exam.ImportRequest{Text: examText})
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = svc.Import(ctx, teacher, exam.ImportRequest{Text: "nothing to see"})
	assert.Error(t, err)

	res, err := svc.Import(ctx, teacher, exam.ImportRequest{Text: "1. Broken\nAnswer: A"})
	require.NoError(t, err)
	assert.Empty(t, res.Imported)
	assert.NotEmpty(t, res.Errors)

	_, err = svc.Import(ctx, teacher, exam.ImportRequest{Text: examText, TrailID: "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c00aa"})
	assert.Error(t, err)
	assert.False(t, core.IsNotFound(err), "an unknown trail is a validation error")

	_, err = svc.Import(ctx, other, exam.ImportRequest{Text: examText, TrailID: trail.ID})
	assert.Equal(t, core.ErrPermissionDenied, err)

	trailID := trail.ID
	res, err = svc.Import(ctx, teacher, exam.ImportRequest{Text: examText, TrailID: trailID})
	require.NoError(t, err)
	require.Len(t, res.Imported, 2)
	assert.Equal(t, []string{"question 3: fewer than 2 options"}, res.Errors)
	for _, q := range res.Imported {
		assert.NotEmpty(t, q.ID)
		assert.Equal(t, teacher.ID, q.AuthorID)
		require.NotNil(t, q.TrailID)
		assert.Equal(t, trailID, *q.TrailID)
	}

	qs, err := svc.List(ctx, student, exam.QueryFilter{TrailID: trailID})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	for _, q := range qs {
		assert.Empty(t, q.Answer, "students never see answers")
	}

	qs, err = svc.List(ctx, teacher, exam.QueryFilter{Search: " PRIME "})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "B", qs[0].Answer)
}

func TestService_Delete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Import(ctx, teacher, exam.ImportRequest{Text: examText})
	require.NoError(t, err)
	first, second := res.Imported[0], res.Imported[1]

	assert.True(t, core.IsNotFound(svc.Delete(ctx, teacher, "5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0fff")))
	assert.Equal(t, core.ErrPermissionDenied, svc.Delete(ctx, other, first.ID))
	assert.NoError(t, svc.Delete(ctx, teacher, first.ID))
	assert.NoError(t, svc.Delete(ctx, admin, second.ID))

	qs, err := svc.List(ctx, admin, exam.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestService_Grade(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Import(ctx, teacher, exam.ImportRequest{Text: examText})
	require.NoError(t, err)
	q1, q2 := res.Imported[0], res.Imported[1]

	got, err := svc.Grade(ctx, student, exam.GradeRequest{Answers: map[string]string{q1.ID: " b ", q2.ID: "A"}})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Score)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 50.0, got.Percentage)
	require.Len(t, got.Results, 2)
	for _, r := range got.Results {
		assert.Equal(t, r.QuestionID == q1.ID, r.Correct)
		assert.Empty(t, r.Answer, "students do not get the answers")
	}

	got, err = svc.Grade(ctx, student, exam.GradeRequest{Answers: map[string]string{q1.ID: "Z", q2.ID: "Z"}})
	require.NoError(t, err)
	assert.Zero(t, got.Score)
	for _, r := range got.Results {
		assert.Equal(t, "Z", r.Given)
		assert.Empty(t, r.Answer)
	}

	got, err = svc.Grade(ctx, teacher, exam.GradeRequest{Answers: map[string]string{q1.ID: "A"}})
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "B", got.Results[0].Answer)

	_, err = svc.Grade(ctx, student, exam.GradeRequest{Answers: map[string]string{"5b0b6b2e-7d55-4c43-9a5e-1a0c3a0c0fff": "A"}})
	assert.Error(t, err)
}
