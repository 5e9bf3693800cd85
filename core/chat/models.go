package chat

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Room kinds
const (
	KindDirect = "direct"
	KindGroup  = "group"
	KindTrail  = "trail"
)

const (
	MaxMessageLen       = 4000
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type Room struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Kind      string    `json:"kind" db:"kind"`
	TrailID   *string   `json:"trail_id" db:"trail_id"`
	DirectKey *string   `json:"-" db:"direct_key"`
	MemberIDs []string  `json:"member_ids" db:"-"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (r Room) HasMember(userID string) bool {
	for _, id := range r.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID        string    `json:"id" db:"id"`
	RoomID    string    `json:"room_id" db:"room_id"`
	SenderID  string    `json:"sender_id" db:"sender_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewRoom struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Kind      string   `json:"kind" validate:"required,oneof=group trail"`
	TrailID   string   `json:"trail_id" validate:"omitempty,uuid"`
	MemberIDs []string `json:"member_ids" validate:"omitempty,max=500,dive,uuid"`
}

func (nr *NewRoom) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Kind = core.CleanString(nr.Kind, true /* lower */)
	nr.TrailID = core.CleanString(nr.TrailID)
	nr.MemberIDs = core.CleanStrings(nr.MemberIDs)
	return validate.Struct(nr)
}

type NewMessage struct {
	Body string `json:"body"`
}

// Clean trims the body and checks its length.
func (nm *NewMessage) Clean() error {
	nm.Body = strings.TrimSpace(nm.Body)
	if n := utf8.RuneCountInString(nm.Body); n == 0 || n > MaxMessageLen {
		return core.NewFieldError("body", "message must contain between 1 and 4000 characters")
	}
	return nil
}

type AddMember struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func (am *AddMember) Validate(validate *validator.Validate) error {
	am.UserID = core.CleanString(am.UserID)
	return validate.Struct(am)
}

// HistoryQuery pages backwards through a room. Before and BeforeID form a
// (created_at, id) cursor; BeforeID is the id of the oldest message already seen.
type HistoryQuery struct {
	Before   time.Time `query:"before"`
	BeforeID string    `query:"before_id"`
	Limit    int       `query:"limit"`
}

func (hq *HistoryQuery) Clean() {
	if hq.Before.IsZero() {
		hq.Before = core.NowFunc().Add(time.Second)
	}
	if hq.Limit <= 0 {
		hq.Limit = defaultHistoryLimit
	}
	if hq.Limit > maxHistoryLimit {
		hq.Limit = maxHistoryLimit
	}
}

// directKey identifies the direct room of two users regardless of their order.
func directKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}
