//go:build testutil
// +build testutil

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/school-office/internal/db"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type DBHandle struct {
	DB     *sql.DB
	cancel func()
	stop   func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start поднимает Postgres в контейнере и накатывает миграции goose.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("school"),
		postgres.WithUsername("school"),
		postgres.WithPassword("school"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	fail := func(err error) (*DBHandle, error) {
		_ = pg.Terminate(context.Background())
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}

	database, err := sql.Open("postgres", uri)
	if err != nil {
		return fail(err)
	}
	if err := waitReady(ctx, database); err != nil {
		return fail(err)
	}
	if err := db.Migrate(ctx, database); err != nil {
		return fail(err)
	}

	return &DBHandle{
		DB:     database,
		cancel: cancel,
		stop:   pg.Terminate,
	}, nil
}

func waitReady(ctx context.Context, database *sql.DB) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := database.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("db not ready")
}

// Seed создаёт минимальный набор данных (школа, класс, две секции, предмет, админ и учитель).
type Seed struct {
	SchoolID  int64
	ClassID   int64
	SectionA  int64
	SectionB  int64
	SubjectID int64
	AdminID   int64
	TeacherID int64
}

func MustSeed(ctx context.Context, database *sql.DB) Seed {
	var s Seed
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(database.QueryRowContext(ctx, `INSERT INTO schools (name, code) VALUES ('Test School', '100001') RETURNING id`).Scan(&s.SchoolID))
	must(database.QueryRowContext(ctx, `INSERT INTO classes (school_id, name, level) VALUES ($1, 'Six', 6) RETURNING id`, s.SchoolID).Scan(&s.ClassID))
	must(database.QueryRowContext(ctx, `INSERT INTO sections (class_id, name) VALUES ($1, 'A') RETURNING id`, s.ClassID).Scan(&s.SectionA))
	must(database.QueryRowContext(ctx, `INSERT INTO sections (class_id, name) VALUES ($1, 'B') RETURNING id`, s.ClassID).Scan(&s.SectionB))
	must(database.QueryRowContext(ctx, `INSERT INTO subjects (class_id, name, code) VALUES ($1, 'Mathematics', 'MATH') RETURNING id`, s.ClassID).Scan(&s.SubjectID))
	must(database.QueryRowContext(ctx, `INSERT INTO users (school_id, name, role) VALUES ($1, 'Admin', 'admin') RETURNING id`, s.SchoolID).Scan(&s.AdminID))
	must(database.QueryRowContext(ctx, `INSERT INTO users (school_id, name, role) VALUES ($1, 'Teacher', 'teacher') RETURNING id`, s.SchoolID).Scan(&s.TeacherID))
	return s
}
