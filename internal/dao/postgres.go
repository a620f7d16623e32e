package dao

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	coreerrors "tieba-chat/internal/core/errors"
	"tieba-chat/internal/core/storage/postgres"
)

// Schema 关系表结构，migrate 命令与测试使用
const Schema = `
CREATE TABLE IF NOT EXISTS chat_user (
	uid         BIGINT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	pwd         TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	nick        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	sex         INT  NOT NULL DEFAULT 0,
	icon        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS friend_apply (
	id       BIGSERIAL PRIMARY KEY,
	from_uid BIGINT NOT NULL,
	to_uid   BIGINT NOT NULL,
	status   SMALLINT NOT NULL DEFAULT 0,
	UNIQUE (from_uid, to_uid)
);

CREATE TABLE IF NOT EXISTS friend (
	id        BIGSERIAL PRIMARY KEY,
	self_id   BIGINT NOT NULL,
	friend_id BIGINT NOT NULL,
	back      TEXT NOT NULL DEFAULT '',
	UNIQUE (self_id, friend_id)
);
`

var _ Repository = (*PgRepository)(nil)

// PgRepository PostgreSQL 仓库
type PgRepository struct {
	pg *postgres.Storage
}

// NewPgRepository 创建 PostgreSQL 仓库
func NewPgRepository(pg *postgres.Storage) *PgRepository {
	return &PgRepository{pg: pg}
}

// EnsureSchema 建表
func (r *PgRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pg.Exec(ctx, Schema); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to create schema")
	}
	return nil
}

// CreateUser 写入用户（注册网关之外的运维与测试用途）
func (r *PgRepository) CreateUser(ctx context.Context, u *User) error {
	if u == nil {
		return coreerrors.New(coreerrors.CodeInvalidParam, "user is nil")
	}
	_, err := r.pg.Exec(ctx, `
		INSERT INTO chat_user (uid, name, pwd, email, nick, description, sex, icon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uid) DO UPDATE SET
			name = EXCLUDED.name,
			pwd = EXCLUDED.pwd,
			email = EXCLUDED.email,
			nick = EXCLUDED.nick,
			description = EXCLUDED.description,
			sex = EXCLUDED.sex,
			icon = EXCLUDED.icon
	`, u.UID, u.Name, u.Pwd, u.Email, u.Nick, u.Desc, u.Sex, u.Icon)
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to save user")
	}
	return nil
}

const selectUser = `SELECT uid, name, pwd, email, nick, description, sex, icon FROM chat_user`

func (r *PgRepository) GetUser(ctx context.Context, uid int64) (*User, error) {
	return r.scanUser(r.pg.QueryRow(ctx, selectUser+` WHERE uid = $1`, uid), uid)
}

func (r *PgRepository) GetUserByName(ctx context.Context, name string) (*User, error) {
	return r.scanUser(r.pg.QueryRow(ctx, selectUser+` WHERE name = $1`, name), name)
}

func (r *PgRepository) scanUser(row pgx.Row, key any) (*User, error) {
	var u User
	err := row.Scan(&u.UID, &u.Name, &u.Pwd, &u.Email, &u.Nick, &u.Desc, &u.Sex, &u.Icon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.Newf(coreerrors.CodeUserNotFound, "user %v not found", key)
		}
		return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to query user")
	}
	return &u, nil
}

func (r *PgRepository) AddFriendApply(ctx context.Context, fromUID, toUID int64) error {
	_, err := r.pg.Exec(ctx, `
		INSERT INTO friend_apply (from_uid, to_uid, status) VALUES ($1, $2, 0)
		ON CONFLICT (from_uid, to_uid) DO UPDATE SET status = 0
	`, fromUID, toUID)
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to add friend apply")
	}
	return nil
}

func (r *PgRepository) AuthFriendApply(ctx context.Context, selfUID, applicantUID int64) error {
	_, err := r.pg.Exec(ctx, `
		UPDATE friend_apply SET status = 1 WHERE from_uid = $1 AND to_uid = $2
	`, applicantUID, selfUID)
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to auth friend apply")
	}
	return nil
}

func (r *PgRepository) AddFriend(ctx context.Context, selfUID, friendUID int64, back string) error {
	err := r.pg.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO friend (self_id, friend_id, back) VALUES ($1, $2, $3)
			ON CONFLICT (self_id, friend_id) DO UPDATE SET back = EXCLUDED.back
		`, selfUID, friendUID, back); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO friend (self_id, friend_id, back) VALUES ($1, $2, '')
			ON CONFLICT (self_id, friend_id) DO NOTHING
		`, friendUID, selfUID)
		return err
	})
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to add friend")
	}
	return nil
}

func (r *PgRepository) GetApplyList(ctx context.Context, toUID int64, offset, limit int) ([]*ApplyInfo, error) {
	if limit <= 0 {
		limit = DefaultApplyPageSize
	}
	rows, err := r.pg.Query(ctx, `
		SELECT a.from_uid, a.status, u.name, u.description, u.icon, u.nick, u.sex
		FROM friend_apply a JOIN chat_user u ON u.uid = a.from_uid
		WHERE a.to_uid = $1
		ORDER BY a.id
		OFFSET $2 LIMIT $3
	`, toUID, offset, limit)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to query apply list")
	}
	defer rows.Close()

	var list []*ApplyInfo
	for rows.Next() {
		var a ApplyInfo
		if err := rows.Scan(&a.UID, &a.Status, &a.Name, &a.Desc, &a.Icon, &a.Nick, &a.Sex); err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to scan apply")
		}
		list = append(list, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to iterate apply list")
	}
	return list, nil
}

func (r *PgRepository) GetFriendList(ctx context.Context, selfUID int64) ([]*User, error) {
	rows, err := r.pg.Query(ctx, `
		SELECT u.uid, u.name, u.pwd, u.email, u.nick, u.description, u.sex, u.icon, f.back
		FROM friend f JOIN chat_user u ON u.uid = f.friend_id
		WHERE f.self_id = $1
		ORDER BY u.uid
	`, selfUID)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to query friend list")
	}
	defer rows.Close()

	var list []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UID, &u.Name, &u.Pwd, &u.Email, &u.Nick, &u.Desc, &u.Sex, &u.Icon, &u.Back); err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to scan friend")
		}
		list = append(list, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeStorageError, "failed to iterate friend list")
	}
	return list, nil
}

// Close 关闭连接池
func (r *PgRepository) Close() error {
	return r.pg.Close()
}
