package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"cmms-data/internal/domain"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// 指向一个必然连不上的地址，驱动层立刻报 connection refused
func unreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres",
		"host=127.0.0.1 port=1 user=cmms dbname=cmms sslmode=disable connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// 存储不可达必须归类为 Unavailable（HTTP 层回 503），
// 不能透传成未识别错误落到 500。
func TestPostgresRepos_StoreErrorsAreUnavailable(t *testing.T) {
	db := unreachableDB(t)
	ctx := context.Background()

	_, err := NewPostgresSchedulesRepo(db).GetSchedule(ctx, "sched-1")
	require.ErrorIs(t, err, domain.ErrUnavailable)
	require.NotErrorIs(t, err, domain.ErrNotFound)

	_, _, err = NewPostgresSchedulesRepo(db).ListSchedules(ctx, &ScheduleFilters{}, 1, 10)
	require.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = NewPostgresDepartmentsRepo(db).CreateDepartment(ctx, &domain.Department{Name: "Production"})
	require.ErrorIs(t, err, domain.ErrUnavailable)

	err = NewPostgresRecordsRepo(db).VerifyRecord(ctx, "rec-1", "admin-1", time.Now().UTC(), "")
	require.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = NewPostgresPartsRepo(db).AdjustQuantity(ctx, "part-1", -1)
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestStoreErr_Classification(t *testing.T) {
	require.NoError(t, storeErr("noop", nil))

	// 完整性约束冲突（23xxx）是 Conflict，不是存储故障
	err := storeErr("failed to create department", &pq.Error{Code: "23505"})
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NotErrorIs(t, err, domain.ErrUnavailable)

	err = storeErr("failed to get schedule", errors.New("connection refused"))
	require.ErrorIs(t, err, domain.ErrUnavailable)

	// ErrNoRows 的 NotFound 语义由调用方区分，这里只透传
	err = storeErr("failed to get schedule", sql.ErrNoRows)
	require.NotErrorIs(t, err, domain.ErrUnavailable)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
