package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

type PGConnector interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	WithReadOnlyTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	GetConn() *pgx.Conn
	Close(ctx context.Context) error
}

// readOnlyTxOptions - every catalog query of the transaction sees the same database state
var readOnlyTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// PGConn is a wrapper around pgx.Conn that allows to wrap logic in transactions
type PGConn struct {
	con *pgx.Conn
}

func NewPGConn(con *pgx.Conn) *PGConn {
	return &PGConn{
		con: con,
	}
}

// Connect - opens the connection using the dsn. connectTimeout equal to zero means no limit
func Connect(ctx context.Context, dsn string, connectTimeout time.Duration) (*PGConn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot parse dsn: %w", err)
	}
	if connectTimeout > 0 {
		cfg.ConnectTimeout = connectTimeout
	}
	con, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the database: %w", err)
	}
	log.Debug().
		Str("Host", cfg.Host).
		Uint16("Port", cfg.Port).
		Str("Database", cfg.Database).
		Msg("connected")
	return NewPGConn(con), nil
}

func (p *PGConn) GetConn() *pgx.Conn {
	return p.con
}

func (p *PGConn) Close(ctx context.Context) error {
	return p.con.Close(ctx)
}

func (p *PGConn) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return p.withTx(ctx, pgx.TxOptions{}, fn)
}

// WithReadOnlyTx - runs fn inside a read only repeatable read transaction. The transaction is always rolled back
func (p *PGConn) WithReadOnlyTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := p.con.BeginTx(ctx, readOnlyTxOptions)
	if err != nil {
		return fmt.Errorf("cannot start transaction: %w", err)
	}
	defer func() {
		if txErr := tx.Rollback(ctx); txErr != nil {
			log.Warn().
				Err(txErr).
				Msg("cannot rollback transaction")
		}
	}()
	return fn(ctx, tx)
}

func (p *PGConn) withTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := p.con.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("cannot start transaction: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if txErr := tx.Rollback(ctx); txErr != nil {
			log.Warn().
				Err(txErr).
				Msg("cannot rollback transaction")
		}
		return err
	}
	return tx.Commit(ctx)
}
