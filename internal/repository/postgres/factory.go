package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmeadon/chunkvault/internal/repository"
)

// NewRepositories creates the PostgreSQL repository implementations.
// The pool parameter must be a valid, connected pool; callers should run
// EnsureSchema first.
//
// Returns the repositories struct with DatabaseType set to "postgres" and
// a Cleanup function that closes the pool.
func NewRepositories(pool *pgxpool.Pool) (*repository.Repositories, error) {
	if pool == nil {
		return nil, repository.ErrNilDatabase
	}

	return &repository.Repositories{
		Sessions:     NewSessionRepository(pool),
		DatabaseType: repository.DatabaseTypePostgres,
		Cleanup: func() {
			pool.Close()
		},
	}, nil
}
