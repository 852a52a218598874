package postgres

import (
	"context"

	"github.com/pressly/goose/v3"
	"github.com/saifdinehd/shopauth/internal/auth/store/drivers/postgres/migrations"
)

// ApplyMigrations brings the schema up to date with the embedded goose
// migrations.
func (s *Store) ApplyMigrations() error {
	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, migrations.FS)
	if err != nil {
		return err
	}

	_, err = provider.Up(context.Background())
	return err
}
