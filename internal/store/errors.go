package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// PostgreSQL SQLSTATE classes for rejected rows.
const (
	pgClassDataException       = "22"
	pgClassIntegrityConstraint = "23"
)

// errTxClosed is returned when a FileTx is used after Commit or Rollback.
var errTxClosed = errors.New("file transaction already closed")

// wrapInsertError describes which row failed. Rows rejected by the server
// for their content are classified as sparketl.ErrLoadConstraint.
func wrapInsertError(row string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isRowRejection(pgErr.Code) {
		return fmt.Errorf("%w: insert %s: %w", sparketl.ErrLoadConstraint, row, err)
	}
	return fmt.Errorf("insert %s: %w", row, err)
}

func isRowRejection(code string) bool {
	return strings.HasPrefix(code, pgClassIntegrityConstraint) || strings.HasPrefix(code, pgClassDataException)
}
