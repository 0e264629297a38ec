//go:build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"cmms-data/internal/config"
	"cmms-data/internal/database"
	"cmms-data/internal/domain"
)

func getTestEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getTestEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// 获取测试数据库连接
func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getTestEnv("TEST_DB_HOST", "localhost"),
		Port:     getTestEnvInt("TEST_DB_PORT", 5432),
		User:     getTestEnv("TEST_DB_USER", "postgres"),
		Password: getTestEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getTestEnv("TEST_DB_NAME", "cmms"),
		SSLMode:  getTestEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}
	return db
}

// 计划依赖资产外键，先建一个测试资产
func createTestAsset(t *testing.T, db *sql.DB) string {
	repo := NewPostgresAssetsRepo(db)
	id, err := repo.CreateAsset(context.Background(), &domain.Asset{
		Name:       "Integration Test Press",
		Tag:        "ITP-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		Category:   "machinery",
		Location:   "Test Bay",
		Department: "IntegrationTest",
		Status:     domain.AssetOperational,
	})
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}
	return id
}

// 清理测试数据
func cleanupScheduleTestData(db *sql.DB, scheduleID, assetID string) {
	db.Exec(`DELETE FROM records WHERE schedule_id = $1`, scheduleID)
	db.Exec(`DELETE FROM schedules WHERE schedule_id = $1`, scheduleID)
	db.Exec(`DELETE FROM assets WHERE asset_id = $1`, assetID)
}

func TestPostgresSchedulesRepository_CreateAndGet(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresSchedulesRepo(db)
	ctx := context.Background()
	assetID := createTestAsset(t, db)

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	sched := &domain.Schedule{
		Kind:        domain.KindMaintenance,
		AssetID:     assetID,
		AssetName:   "Integration Test Press",
		Location:    "Test Bay",
		Department:  "IntegrationTest",
		Title:       "Monthly lubrication",
		Frequency:   domain.FrequencyMonthly,
		StartDate:   start,
		NextDueDate: start.AddDate(0, 1, 0),
		Priority:    domain.PriorityHigh,
		Template: domain.WorkTemplate{
			Parts: []domain.PartTemplate{{Name: "spindle", Required: true}},
		},
		CreatedBy: "itest",
	}

	scheduleID, err := repo.CreateSchedule(ctx, sched)
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	defer cleanupScheduleTestData(db, scheduleID, assetID)

	got, err := repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if got.Title != sched.Title {
		t.Errorf("Expected title '%s', got '%s'", sched.Title, got.Title)
	}
	if !got.NextDueDate.Equal(sched.NextDueDate) {
		t.Errorf("Expected next_due_date %v, got %v", sched.NextDueDate, got.NextDueDate)
	}
	if got.StatusOverride != "" {
		t.Errorf("Expected empty status_override, got '%s'", got.StatusOverride)
	}
	if len(got.Template.Parts) != 1 || got.Template.Parts[0].Name != "spindle" {
		t.Errorf("Template JSONB roundtrip failed: %+v", got.Template)
	}
}

func TestPostgresSchedulesRepository_AdvanceAndOverride(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresSchedulesRepo(db)
	ctx := context.Background()
	assetID := createTestAsset(t, db)

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	scheduleID, err := repo.CreateSchedule(ctx, &domain.Schedule{
		Kind:        domain.KindMaintenance,
		AssetID:     assetID,
		Department:  "IntegrationTest",
		Title:       "Advance test",
		Frequency:   domain.FrequencyMonthly,
		StartDate:   start,
		NextDueDate: start.AddDate(0, 1, 0),
		Priority:    domain.PriorityLow,
	})
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	defer cleanupScheduleTestData(db, scheduleID, assetID)

	// 先置 inactive，再推进，标记应被清掉
	if err := repo.SetOverride(ctx, scheduleID, domain.ScheduleInactive); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	completed := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	nextDue := completed.AddDate(0, 1, 0)
	if err := repo.AdvanceSchedule(ctx, scheduleID, completed, nextDue); err != nil {
		t.Fatalf("AdvanceSchedule failed: %v", err)
	}

	got, err := repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if got.LastCompletedDate == nil || !got.LastCompletedDate.Equal(completed) {
		t.Errorf("Expected last_completed_date %v, got %v", completed, got.LastCompletedDate)
	}
	if !got.NextDueDate.Equal(nextDue) {
		t.Errorf("Expected next_due_date %v, got %v", nextDue, got.NextDueDate)
	}
	if got.StatusOverride != "" {
		t.Errorf("Expected advance to clear status_override, got '%s'", got.StatusOverride)
	}
}

func TestPostgresRecordsRepository_VerifyIsOneWay(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresRecordsRepo(db)
	ctx := context.Background()
	assetID := createTestAsset(t, db)

	recordID, err := repo.CreateRecord(ctx, &domain.Record{
		Kind:             domain.KindMaintenance,
		AssetID:          assetID,
		AssetName:        "Integration Test Press",
		Department:       "IntegrationTest",
		TechnicianID:     "itest",
		TechnicianName:   "Integration Tester",
		CompletedDate:    time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		Status:           domain.RecordCompleted,
		OverallCondition: domain.ConditionGood,
	})
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	defer func() {
		db.Exec(`DELETE FROM records WHERE record_id = $1`, recordID)
		db.Exec(`DELETE FROM assets WHERE asset_id = $1`, assetID)
	}()

	at := time.Now().UTC()
	if err := repo.VerifyRecord(ctx, recordID, "admin-1", at, "looks good"); err != nil {
		t.Fatalf("VerifyRecord failed: %v", err)
	}

	// 二次审核必须 Conflict，且首次署名不被覆盖
	err = repo.VerifyRecord(ctx, recordID, "admin-2", at.Add(time.Hour), "again")
	if err == nil {
		t.Fatal("Expected conflict on second verify, got nil")
	}

	got, err := repo.GetRecord(ctx, recordID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if !got.AdminVerified {
		t.Error("Expected admin_verified=true")
	}
	if got.AdminVerifiedBy != "admin-1" {
		t.Errorf("Expected admin_verified_by 'admin-1', got '%s'", got.AdminVerifiedBy)
	}
	if got.AdminNotes != "looks good" {
		t.Errorf("Expected notes 'looks good', got '%s'", got.AdminNotes)
	}
}
