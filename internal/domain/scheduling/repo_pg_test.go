package scheduling

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medbook/medbook/internal/platform/db"
)

// stubQueryable satisfies db.Queryable so tests can observe which
// connection source a repository resolves from the context.
type stubQueryable struct{}

func (stubQueryable) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubQueryable) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (stubQueryable) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestScheduleRepoConnPrefersContextQueryable(t *testing.T) {
	repo := &scheduleRepoPG{pool: nil}
	bound := stubQueryable{}

	got := repo.conn(db.WithQueryable(context.Background(), bound))
	if got != bound {
		t.Errorf("expected context-bound queryable, got %T", got)
	}
}

func TestAppointmentRepoConnPrefersContextQueryable(t *testing.T) {
	repo := &appointmentRepoPG{pool: nil}
	bound := stubQueryable{}

	got := repo.conn(db.WithQueryable(context.Background(), bound))
	if got != bound {
		t.Errorf("expected context-bound queryable, got %T", got)
	}
}

func TestRepoConnFallsBackToPool(t *testing.T) {
	repo := &appointmentRepoPG{pool: nil}

	if got := repo.conn(context.Background()); got != repo.pool {
		t.Errorf("expected pool fallback on unbound context, got %T", got)
	}
}
