package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"studyhall.org/internal/auth"
)

const userColumns = `id, net_id, name, coalesce(bio, ''), password_digest, session_token, session_expiration, update_token`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.NetID, &u.Name, &u.Bio, &u.PasswordDigest,
		&u.SessionToken, &u.SessionExpiresAt, &u.UpdateToken)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	err := s.db.QueryRowContext(ctx, `
		insert into users(net_id, name, bio, password_digest, session_token, session_expiration, update_token)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id
	`, u.NetID, u.Name, nullIfEmpty(u.Bio), u.PasswordDigest,
		u.SessionToken, u.SessionExpiresAt, u.UpdateToken).Scan(&u.ID)
	return maybePgError(err, auth.ErrAlreadyExists, nil)
}

func (s *Store) UserByID(ctx context.Context, id int64) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (s *Store) UserByNetID(ctx context.Context, netID string) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where net_id = $1`, netID))
}

func (s *Store) UserBySessionToken(ctx context.Context, token string) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where session_token = $1`, token))
}

func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) SetSession(ctx context.Context, userID int64, sess auth.Session) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set session_token = $2, session_expiration = $3, update_token = $4
		where id = $1
	`, userID, sess.SessionToken, sess.SessionExpiresAt, sess.UpdateToken)
	if err != nil {
		return err
	}
	return expectRow(res, auth.ErrNotFound)
}

func (s *Store) RotateSession(ctx context.Context, updateToken string, sess auth.Session) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		update users
		set session_token = $2, session_expiration = $3, update_token = $4
		where update_token = $1
		returning `+userColumns,
		updateToken, sess.SessionToken, sess.SessionExpiresAt, sess.UpdateToken))
}

func (s *Store) ExpireSession(ctx context.Context, userID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update users set session_expiration = $2 where id = $1`, userID, at)
	if err != nil {
		return err
	}
	return expectRow(res, auth.ErrNotFound)
}
