// Package inmemdb implements every repository over mutex-guarded maps.
// It backs DEV runs without Postgres and the tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/ai"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/forum"
	"github.com/trezcool/academia/core/library"
	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
)

type DB struct {
	sync.RWMutex

	users     map[string]user.User
	trails    map[string]course.Trail
	modules   map[string]course.Module
	contents  map[string]course.Content
	progress  map[progressKey]course.Progress
	lives     map[string]live.Live
	questions map[string]live.Question
	forums    map[string]forum.Forum
	posts     map[string]forum.Post
	rooms     map[string]chat.Room
	messages  map[string]chat.Message
	resources map[string]library.Resource
	examQs    map[string]exam.Question
	essays    map[string]ai.EssayGrade
}

type progressKey struct {
	userID, contentID string
}

func Open() *DB {
	return &DB{
		users:     make(map[string]user.User),
		trails:    make(map[string]course.Trail),
		modules:   make(map[string]course.Module),
		contents:  make(map[string]course.Content),
		progress:  make(map[progressKey]course.Progress),
		lives:     make(map[string]live.Live),
		questions: make(map[string]live.Question),
		forums:    make(map[string]forum.Forum),
		posts:     make(map[string]forum.Post),
		rooms:     make(map[string]chat.Room),
		messages:  make(map[string]chat.Message),
		resources: make(map[string]library.Resource),
		examQs:    make(map[string]exam.Question),
		essays:    make(map[string]ai.EssayGrade),
	}
}

func copyStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	return append(make([]string, 0, len(ss)), ss...)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
