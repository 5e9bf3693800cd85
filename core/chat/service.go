package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

const TopicKind = "chat"

// Event types published on the chat topic
const (
	EventMessageCreated = "message.created"
	EventMemberJoined   = "member.joined"
	EventMemberLeft     = "member.left"
)

var (
	// errors
	ErrRoomNotFound = core.NewNotFoundError("room not found")
	ErrRoomExists   = errors.New("room already exists")

	errSelfDirect    = "cannot open a direct room with yourself"
	errDirectMembers = "members of direct rooms cannot change"
	errTrailRequired = "this field is required"
)

type (
	Repository interface {
		// CreateRoom stores the room and its members. It returns ErrRoomExists when the DirectKey is taken.
		CreateRoom(ctx context.Context, r Room) (Room, error)
		GetRoom(ctx context.Context, id string) (Room, error)
		GetDirectRoom(ctx context.Context, key string) (Room, error)
		// QueryRooms returns the rooms `userID` is a member of, newest first.
		QueryRooms(ctx context.Context, userID string) ([]Room, error)
		AddMember(ctx context.Context, roomID, userID string) error
		RemoveMember(ctx context.Context, roomID, userID string) error

		CreateMessage(ctx context.Context, m Message) (Message, error)
		// QueryMessages returns at most `limit` messages of the room created before `before`, newest first.
		QueryMessages(ctx context.Context, roomID string, hq HistoryQuery) ([]Message, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	TrailFinder interface {
		GetTrail(ctx context.Context, id string) (course.Trail, error)
	}

	Service struct {
		repo   Repository
		users  UserFinder
		trails TrailFinder
		pub    core.EventPublisher
		logger core.Logger
	}
)

func NewService(repo Repository, users UserFinder, trails TrailFinder, pub core.EventPublisher, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, trails: trails, pub: pub, logger: logger}
}

func (svc *Service) publish(ctx context.Context, roomID, typ string, data interface{}) {
	core.PublishEvent(ctx, svc.pub, svc.logger, core.Topic(TopicKind, roomID), typ, data)
}

// checkUsers returns a ValidationError on `field` if any of the ids is not an existing user.
func (svc *Service) checkUsers(ctx context.Context, field string, ids ...string) error {
	for _, id := range ids {
		if _, err := svc.users.GetByID(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError(field, "user "+id+" not found")
			}
			return errors.Wrap(err, "finding user")
		}
	}
	return nil
}

// CreateRoom creates a group or trail room with `actor` as a member.
func (svc *Service) CreateRoom(ctx context.Context, actor user.User, nr NewRoom) (Room, error) {
	r := Room{
		ID:        uuid.New().String(),
		Name:      nr.Name,
		Kind:      nr.Kind,
		CreatedBy: actor.ID,
		CreatedAt: core.NowFunc(),
	}

	if nr.Kind == KindTrail {
		if nr.TrailID == "" {
			return Room{}, core.NewFieldError("trail_id", errTrailRequired)
		}
		t, err := svc.trails.GetTrail(ctx, nr.TrailID)
		if err != nil {
			if core.IsNotFound(err) {
				return Room{}, core.NewFieldError("trail_id", err.Error())
			}
			return Room{}, errors.Wrap(err, "finding trail")
		}
		if !actor.IsAdmin() && t.TeacherID != actor.ID {
			return Room{}, core.ErrPermissionDenied
		}
		r.TrailID = &t.ID
	}

	if err := svc.checkUsers(ctx, "member_ids", nr.MemberIDs...); err != nil {
		return Room{}, err
	}
	r.MemberIDs = []string{actor.ID}
	for _, id := range nr.MemberIDs {
		if !r.HasMember(id) {
			r.MemberIDs = append(r.MemberIDs, id)
		}
	}
	return svc.repo.CreateRoom(ctx, r)
}

// DirectRoom returns the direct room of `actor` and `otherID`, creating it on first use.
func (svc *Service) DirectRoom(ctx context.Context, actor user.User, otherID string) (Room, error) {
	if otherID == actor.ID {
		return Room{}, core.NewFieldError("user_id", errSelfDirect)
	}
	key := directKey(actor.ID, otherID)
	r, err := svc.repo.GetDirectRoom(ctx, key)
	if err == nil {
		return r, nil
	} else if !core.IsNotFound(err) {
		return Room{}, errors.Wrap(err, "finding direct room")
	}

	if err := svc.checkUsers(ctx, "user_id", otherID); err != nil {
		return Room{}, err
	}
	r, err = svc.repo.CreateRoom(ctx, Room{
		ID:        uuid.New().String(),
		Kind:      KindDirect,
		DirectKey: &key,
		MemberIDs: []string{actor.ID, otherID},
		CreatedBy: actor.ID,
		CreatedAt: core.NowFunc(),
	})
	if errors.Cause(err) == ErrRoomExists {
		// created concurrently
		return svc.repo.GetDirectRoom(ctx, key)
	}
	return r, err
}

func (svc *Service) Rooms(ctx context.Context, actor user.User) ([]Room, error) {
	rooms, err := svc.repo.QueryRooms(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	return rooms, nil
}

// Room returns the room if `actor` is a member, ErrRoomNotFound otherwise.
func (svc *Service) Room(ctx context.Context, actor user.User, id string) (Room, error) {
	r, err := svc.repo.GetRoom(ctx, id)
	if err != nil {
		return Room{}, err
	}
	if !r.HasMember(actor.ID) {
		return Room{}, ErrRoomNotFound
	}
	return r, nil
}

// IsMember reports whether the user belongs to the room.
func (svc *Service) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	r, err := svc.repo.GetRoom(ctx, roomID)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return r.HasMember(userID), nil
}

func (svc *Service) Send(ctx context.Context, actor user.User, roomID string, nm NewMessage) (Message, error) {
	if err := nm.Clean(); err != nil {
		return Message{}, err
	}
	r, err := svc.Room(ctx, actor, roomID)
	if err != nil {
		return Message{}, err
	}

	m, err := svc.repo.CreateMessage(ctx, Message{
		ID:        uuid.New().String(),
		RoomID:    r.ID,
		SenderID:  actor.ID,
		Body:      nm.Body,
		CreatedAt: core.NowFunc(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}
	svc.publish(ctx, r.ID, EventMessageCreated, m)
	return m, nil
}

// History returns a window of the room's messages, oldest first.
func (svc *Service) History(ctx context.Context, actor user.User, roomID string, hq HistoryQuery) ([]Message, error) {
	r, err := svc.Room(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}
	if hq.BeforeID != "" {
		if _, err := uuid.Parse(hq.BeforeID); err != nil || hq.Before.IsZero() {
			return nil, core.NewFieldError("before_id", "must be a message id, sent along with before")
		}
	}
	hq.Clean()
	msgs, err := svc.repo.QueryMessages(ctx, r.ID, hq)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (svc *Service) AddMember(ctx context.Context, actor user.User, roomID string, am AddMember) (Room, error) {
	r, err := svc.Room(ctx, actor, roomID)
	if err != nil {
		return Room{}, err
	}
	if r.Kind == KindDirect {
		return Room{}, core.NewFieldError("user_id", errDirectMembers)
	}
	if r.HasMember(am.UserID) {
		return r, nil
	}
	if err := svc.checkUsers(ctx, "user_id", am.UserID); err != nil {
		return Room{}, err
	}
	if err := svc.repo.AddMember(ctx, r.ID, am.UserID); err != nil {
		return Room{}, errors.Wrap(err, "adding member")
	}
	r.MemberIDs = append(r.MemberIDs, am.UserID)
	svc.publish(ctx, r.ID, EventMemberJoined, map[string]string{"user_id": am.UserID})
	return r, nil
}

func (svc *Service) Leave(ctx context.Context, actor user.User, roomID string) error {
	r, err := svc.Room(ctx, actor, roomID)
	if err != nil {
		return err
	}
	if r.Kind == KindDirect {
		return core.NewFieldError("user_id", errDirectMembers)
	}
	if err := svc.repo.RemoveMember(ctx, r.ID, actor.ID); err != nil {
		return errors.Wrap(err, "removing member")
	}
	svc.publish(ctx, r.ID, EventMemberLeft, map[string]string{"user_id": actor.ID})
	return nil
}
