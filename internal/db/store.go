package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/metrics"
)

// Store: доступ к строкам. Сервисы видят его через свои узкие интерфейсы.
type Store struct {
	DB *sql.DB
}

func NewStore(database *sql.DB) *Store { return &Store{DB: database} }

// Ping: для /healthz.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.DB.PingContext(ctx)
	metrics.ObserveDBPing(time.Since(start))
	return err
}

// inTx: транзакция с откатом на любом выходе, кроме успешного Commit.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func noRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// dateOnly: полночь календарного дня в UTC, как хранит колонка DATE.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
