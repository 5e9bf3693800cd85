package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/chat"
)

const (
	roomColumns    = `id, name, kind, trail_id, direct_key, created_by, created_at`
	messageColumns = `id, room_id, sender_id, body, created_at`
)

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *sqlx.DB) *chatRepository {
	return &chatRepository{db: db}
}

func (repo chatRepository) CreateRoom(ctx context.Context, r chat.Room) (chat.Room, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO chat_room (` + roomColumns + `)
			VALUES (:id, :name, :kind, :trail_id, :direct_key, :created_by, :created_at)`
		if _, err := tx.NamedExecContext(ctx, q, r); err != nil {
			if isUniqueViolation(err) {
				return chat.ErrRoomExists
			}
			return errors.Wrap(err, "inserting room")
		}
		stmt, err := tx.PreparexContext(ctx, `INSERT INTO chat_member (room_id, user_id, joined_at) VALUES ($1, $2, $3)`)
		if err != nil {
			return errors.Wrap(err, "preparing member insert")
		}
		defer stmt.Close()
		for _, id := range r.MemberIDs {
			if _, err := stmt.ExecContext(ctx, r.ID, id, r.CreatedAt.UTC()); err != nil {
				return errors.Wrap(err, "inserting member")
			}
		}
		return nil
	})
	if err != nil {
		return chat.Room{}, err
	}
	return r, nil
}

// withMembers loads the member ids of the rooms, in joining order.
func (repo chatRepository) withMembers(ctx context.Context, rooms []chat.Room) ([]chat.Room, error) {
	if len(rooms) == 0 {
		return rooms, nil
	}
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}

	var members []struct {
		RoomID string `db:"room_id"`
		UserID string `db:"user_id"`
	}
	q := `SELECT room_id, user_id FROM chat_member WHERE room_id = ANY($1) ORDER BY joined_at, user_id`
	if err := repo.db.SelectContext(ctx, &members, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	byRoom := make(map[string][]string, len(rooms))
	for _, m := range members {
		byRoom[m.RoomID] = append(byRoom[m.RoomID], m.UserID)
	}
	for i := range rooms {
		rooms[i].MemberIDs = byRoom[rooms[i].ID]
		if rooms[i].MemberIDs == nil {
			rooms[i].MemberIDs = []string{}
		}
	}
	return rooms, nil
}

func (repo chatRepository) getRoom(ctx context.Context, cond string, arg interface{}) (chat.Room, error) {
	var r chat.Room
	if err := repo.db.GetContext(ctx, &r, `SELECT `+roomColumns+` FROM chat_room WHERE `+cond, arg); err != nil {
		return chat.Room{}, trapNoRowsErr(err, chat.ErrRoomNotFound, "getting room")
	}
	rooms, err := repo.withMembers(ctx, []chat.Room{r})
	if err != nil {
		return chat.Room{}, err
	}
	return rooms[0], nil
}

func (repo chatRepository) GetRoom(ctx context.Context, id string) (chat.Room, error) {
	return repo.getRoom(ctx, "id = $1", id)
}

func (repo chatRepository) GetDirectRoom(ctx context.Context, key string) (chat.Room, error) {
	return repo.getRoom(ctx, "direct_key = $1", key)
}

func (repo chatRepository) QueryRooms(ctx context.Context, userID string) ([]chat.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM chat_room
		WHERE id IN (SELECT room_id FROM chat_member WHERE user_id = $1)
		ORDER BY created_at DESC, id`
	rooms := make([]chat.Room, 0)
	if err := repo.db.SelectContext(ctx, &rooms, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	return repo.withMembers(ctx, rooms)
}

func (repo chatRepository) AddMember(ctx context.Context, roomID, userID string) error {
	q := `INSERT INTO chat_member (room_id, user_id, joined_at) VALUES ($1, $2, now()) ON CONFLICT DO NOTHING`
	_, err := repo.db.ExecContext(ctx, q, roomID, userID)
	return errors.Wrap(err, "inserting member")
}

func (repo chatRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM chat_member WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	return errors.Wrap(err, "deleting member")
}

func (repo chatRepository) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	q := `INSERT INTO chat_message (` + messageColumns + `) VALUES (:id, :room_id, :sender_id, :body, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, m); err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo chatRepository) QueryMessages(ctx context.Context, roomID string, hq chat.HistoryQuery) ([]chat.Message, error) {
	cursor := `created_at < $2`
	args := []interface{}{roomID, hq.Before.UTC(), hq.Limit}
	if hq.BeforeID != "" {
		cursor = `(created_at, id) < ($2, $4::uuid)`
		args = append(args, hq.BeforeID)
	}
	q := `SELECT ` + messageColumns + ` FROM chat_message
		WHERE room_id = $1 AND ` + cursor + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	msgs := make([]chat.Message, 0)
	if err := repo.db.SelectContext(ctx, &msgs, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	return msgs, nil
}
