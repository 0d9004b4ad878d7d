package store

import (
	"context"

	"github.com/mbolis/quick-forms/model"
)

// LookupUsers resolves submitter identities. Unknown ids are left out of
// the result.
func (s *Store) LookupUsers(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	users := make(map[int64]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email FROM users
		WHERE id IN (`+placeholders(1, len(args))+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u := model.User{}
		if err = rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

func (s *Store) InsertUser(ctx context.Context, username, name, email string, passwordHash []byte, roles string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, name, email, password_hash, roles)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		username, name, email, string(passwordHash), roles,
	).Scan(&id)
	return id, err
}
