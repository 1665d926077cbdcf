package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	nesterrors "infranest/internal/errors"
)

// duplicate_object, raised by a foreign key that already exists
const codeDuplicateObject = "42710"

// ApplyDDL executes the statements one by one in phase order. Statements
// that fail because the object already exists are skipped, so applying
// the same DDL twice is a no-op.
func ApplyDDL(ctx context.Context, db *sql.DB, ddl DDL, logger zerolog.Logger) (applied int, err error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, p := range ddl.Phases {
		for _, stmt := range p.Statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == codeDuplicateObject {
					logger.Debug().Str("phase", p.Name).Str("constraint", pgErr.ConstraintName).
						Str("reason", strings.TrimSpace(pgErr.Message)).Msg("DDL skipped, already exists")
					continue
				}
				return applied, nesterrors.Mark(nesterrors.Wrapf(err, "phase %s", p.Name), nesterrors.ErrDatabase)
			}
			applied++
		}
	}
	logger.Info().Str("schema", ddl.Schema).Int("statements", applied).Msg("DDL applied")
	return applied, nil
}
