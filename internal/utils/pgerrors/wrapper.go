package pgerrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PgError - server error enriched with the name of the query that caused it
type PgError struct {
	Query string
	Err   *pgconn.PgError
}

// Wrap - returns PgError when err is a server error, otherwise err is returned as is
func Wrap(err error, query string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	return &PgError{Query: query, Err: pgErr}
}

func (e *PgError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Query, e.Err.Message)
	if e.Err.Detail != "" {
		msg += " " + e.Err.Detail
	}
	return fmt.Sprintf("%s (code %s)", msg, e.Err.Code)
}

func (e *PgError) Unwrap() error {
	return e.Err
}
