package forum_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/forum"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

type fixture struct {
	svc                     *forum.Service
	events                  *testutil.EventRecorder
	admin, teacher, student user.User
	otherStudent            user.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	events := new(testutil.EventRecorder)

	// strictly increasing clock so posts keep their creation order
	origNow := core.NowFunc
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	t.Cleanup(func() { core.NowFunc = origNow })

	return fixture{
		svc:          forum.NewService(inmemdb.NewForumRepository(db), events, testutil.NewLogger(core.NewTestConfig())),
		events:       events,
		admin:        testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true),
		teacher:      testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true),
		student:      testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true),
		otherStudent: testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true),
	}
}

func TestService_forums(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, fx.student, forum.NewForum{Title: "Nope"})
	assert.Equal(t, core.ErrPermissionDenied, err)

	f, err := fx.svc.Create(ctx, fx.teacher, forum.NewForum{Title: "General"})
	require.NoError(t, err)
	assert.Nil(t, f.TrailID)
	assert.Zero(t, f.PostCount)

	title := "Announcements"
	_, err = fx.svc.Update(ctx, fx.student, f.ID, forum.UpdateForum{Title: &title})
	assert.Equal(t, core.ErrPermissionDenied, err)
	f, err = fx.svc.Update(ctx, fx.teacher, f.ID, forum.UpdateForum{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Announcements", f.Title)

	forums, err := fx.svc.List(ctx, forum.QueryFilter{Search: " announce"})
	require.NoError(t, err)
	require.Len(t, forums, 1)

	assert.Equal(t, core.ErrPermissionDenied, fx.svc.Delete(ctx, fx.student, f.ID))
	require.NoError(t, fx.svc.Delete(ctx, fx.admin, f.ID))
	_, err = fx.svc.Get(ctx, f.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_posts(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, err := fx.svc.Create(ctx, fx.teacher, forum.NewForum{Title: "General"})
	require.NoError(t, err)
	other, err := fx.svc.Create(ctx, fx.teacher, forum.NewForum{Title: "Other"})
	require.NoError(t, err)
	topic := core.Topic(forum.TopicKind, f.ID)

	p1, err := fx.svc.Post(ctx, fx.student, f.ID, forum.NewPost{Body: "first"})
	require.NoError(t, err)
	reply, err := fx.svc.Reply(ctx, fx.otherStudent, p1.ID, forum.UpdatePost{Body: "reply"})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, p1.ID, *reply.ParentID)
	assert.Equal(t, f.ID, reply.ForumID)
	p2, err := fx.svc.Post(ctx, fx.otherStudent, f.ID, forum.NewPost{Body: "second"})
	require.NoError(t, err)

	_, err = fx.svc.Post(ctx, fx.student, other.ID, forum.NewPost{Body: "cross", ParentID: p1.ID})
	assert.Error(t, err, "a reply stays in its parent's forum")

	f, err = fx.svc.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, f.PostCount)
	require.NotNil(t, f.LastPostAt)
	assert.True(t, f.LastPostAt.Equal(p2.CreatedAt))

	t.Run("pagination", func(t *testing.T) {
		posts, err := fx.svc.Posts(ctx, f.ID, core.Page{Limit: 2})
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, p1.ID, posts[0].ID)
		assert.Equal(t, reply.ID, posts[1].ID)

		posts, err = fx.svc.Posts(ctx, f.ID, core.Page{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, p2.ID, posts[0].ID)
	})

	t.Run("edit", func(t *testing.T) {
		_, err := fx.svc.EditPost(ctx, fx.otherStudent, p1.ID, forum.UpdatePost{Body: "hacked"})
		assert.Equal(t, core.ErrPermissionDenied, err)
		p, err := fx.svc.EditPost(ctx, fx.student, p1.ID, forum.UpdatePost{Body: "first, edited"})
		require.NoError(t, err)
		assert.Equal(t, "first, edited", p.Body)
		assert.NotNil(t, p.EditedAt)
	})

	t.Run("locked forums refuse posts", func(t *testing.T) {
		_, err := fx.svc.Lock(ctx, fx.student, f.ID)
		assert.Equal(t, core.ErrPermissionDenied, err)
		_, err = fx.svc.Lock(ctx, fx.teacher, f.ID)
		require.NoError(t, err)

		_, err = fx.svc.Post(ctx, fx.student, f.ID, forum.NewPost{Body: "hello?"})
		assert.Error(t, err)
		_, err = fx.svc.EditPost(ctx, fx.student, p1.ID, forum.UpdatePost{Body: "again"})
		assert.Error(t, err)

		_, err = fx.svc.Unlock(ctx, fx.admin, f.ID)
		require.NoError(t, err)
		_, err = fx.svc.Post(ctx, fx.student, f.ID, forum.NewPost{Body: "hello!"})
		require.NoError(t, err)
	})

	t.Run("delete removes replies", func(t *testing.T) {
		assert.Equal(t, core.ErrPermissionDenied, fx.svc.DeletePost(ctx, fx.otherStudent, p1.ID))
		require.NoError(t, fx.svc.DeletePost(ctx, fx.teacher, p1.ID))

		_, err := fx.svc.GetPost(ctx, reply.ID)
		assert.True(t, core.IsNotFound(err))

		f, err := fx.svc.Get(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, f.PostCount)
	})

	assert.Equal(t, []string{
		forum.EventPostCreated,
		forum.EventPostCreated,
		forum.EventPostCreated,
		forum.EventPostUpdated,
		forum.EventLocked,
		forum.EventUnlocked,
		forum.EventPostCreated,
		forum.EventPostDeleted,
	}, fx.events.Types(topic))
}
