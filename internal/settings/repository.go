package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Load returns the stored settings with defaults applied, or the defaults
// when nothing has been saved yet.
func (r *Repository) Load(ctx context.Context) (Settings, error) {
	var data []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT data
		FROM settings
		WHERE id = 1
	`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Default(), nil
		}
		return Settings{}, err
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("stored settings: %w", err)
	}

	return s, nil
}

func (r *Repository) Save(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, data)
	return err
}
