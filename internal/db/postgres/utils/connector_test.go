package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/greenmaskio/pgschemadiff/internal/utils/testutils"
)

type connectorSuite struct {
	testutils.PgContainerSuite
}

func TestConnector(t *testing.T) {
	suite.Run(t, new(connectorSuite))
}

func (s *connectorSuite) Test_connectorSuite_WithTx() {
	ctx := context.Background()
	pgConn, err := Connect(ctx, s.ConnStr, 10*time.Second)
	s.Require().NoError(err)
	defer pgConn.Close(ctx) // nolint: errcheck
	conn := pgConn.GetConn()

	s.Run("check commit", func() {
		err := pgConn.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "CREATE TABLE _test_table_commit (id SERIAL PRIMARY KEY, name TEXT)")
			return err
		})
		s.Require().NoError(err)

		var relOid uint32
		err = conn.QueryRow(ctx, "SELECT oid FROM pg_catalog.pg_class WHERE relname = '_test_table_commit'").
			Scan(&relOid)
		s.Require().NoError(err)
		s.Require().NotZero(relOid)
	})

	s.Run("check error", func() {
		err := pgConn.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "CREATE TABLE _test_table_rollback (id SERIAL PRIMARY KEY, name TEXT)")
			s.Require().NoError(err)
			return errors.New("some error")
		})
		s.Require().Error(err)

		var relOid uint32
		err = conn.QueryRow(ctx, "SELECT oid FROM pg_catalog.pg_class WHERE relname = '_test_table_rollback'").
			Scan(&relOid)
		s.Require().ErrorIs(err, pgx.ErrNoRows)
	})

	s.Run("read only", func() {
		err := pgConn.WithReadOnlyTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "CREATE TABLE _test_table_read_only (id INT)")
			return err
		})
		s.Require().Error(err)

		var isolation string
		err = pgConn.WithReadOnlyTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return tx.QueryRow(ctx, "SHOW transaction_isolation").Scan(&isolation)
		})
		s.Require().NoError(err)
		s.Equal("repeatable read", isolation)
	})
}

func TestConnect_InvalidDsn(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://user@host:notaport/db", time.Second)
	require.Error(t, err)
}
