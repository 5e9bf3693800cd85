package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/chat"
)

type chatRepository struct {
	db *DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{db: db}
}

func cloneRoom(r chat.Room) chat.Room {
	r.TrailID = copyString(r.TrailID)
	r.DirectKey = copyString(r.DirectKey)
	r.MemberIDs = copyStrings(r.MemberIDs)
	return r
}

func (repo *chatRepository) CreateRoom(_ context.Context, r chat.Room) (chat.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if r.DirectKey != nil {
		for _, room := range repo.db.rooms {
			if room.DirectKey != nil && *room.DirectKey == *r.DirectKey {
				return chat.Room{}, chat.ErrRoomExists
			}
		}
	}
	repo.db.rooms[r.ID] = cloneRoom(r)
	return r, nil
}

func (repo *chatRepository) GetRoom(_ context.Context, id string) (chat.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if r, ok := repo.db.rooms[id]; ok {
		return cloneRoom(r), nil
	}
	return chat.Room{}, chat.ErrRoomNotFound
}

func (repo *chatRepository) GetDirectRoom(_ context.Context, key string) (chat.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, r := range repo.db.rooms {
		if r.DirectKey != nil && *r.DirectKey == key {
			return cloneRoom(r), nil
		}
	}
	return chat.Room{}, chat.ErrRoomNotFound
}

func (repo *chatRepository) QueryRooms(_ context.Context, userID string) ([]chat.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rooms := make([]chat.Room, 0)
	for _, r := range repo.db.rooms {
		if r.HasMember(userID) {
			rooms = append(rooms, cloneRoom(r))
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (repo *chatRepository) AddMember(_ context.Context, roomID, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	r, ok := repo.db.rooms[roomID]
	if !ok {
		return chat.ErrRoomNotFound
	}
	if !r.HasMember(userID) {
		r.MemberIDs = append(copyStrings(r.MemberIDs), userID)
		repo.db.rooms[roomID] = r
	}
	return nil
}

func (repo *chatRepository) RemoveMember(_ context.Context, roomID, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	r, ok := repo.db.rooms[roomID]
	if !ok {
		return chat.ErrRoomNotFound
	}
	members := make([]string, 0, len(r.MemberIDs))
	for _, id := range r.MemberIDs {
		if id != userID {
			members = append(members, id)
		}
	}
	r.MemberIDs = members
	repo.db.rooms[roomID] = r
	return nil
}

func (repo *chatRepository) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rooms[m.RoomID]; !ok {
		return chat.Message{}, chat.ErrRoomNotFound
	}
	repo.db.messages[m.ID] = m
	return m, nil
}

func (repo *chatRepository) QueryMessages(_ context.Context, roomID string, hq chat.HistoryQuery) ([]chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]chat.Message, 0)
	for _, m := range repo.db.messages {
		if m.RoomID == roomID && beforeCursor(m, hq) {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID > msgs[j].ID
	})
	if hq.Limit > 0 && len(msgs) > hq.Limit {
		msgs = msgs[:hq.Limit]
	}
	return msgs, nil
}

func beforeCursor(m chat.Message, hq chat.HistoryQuery) bool {
	if m.CreatedAt.Before(hq.Before) {
		return true
	}
	return hq.BeforeID != "" && m.CreatedAt.Equal(hq.Before) && m.ID < hq.BeforeID
}
