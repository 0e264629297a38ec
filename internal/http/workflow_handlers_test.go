package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
	"cmms-data/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router *Router
	assets *repository.MemoryAssetsRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	assets := repository.NewMemoryAssetsRepo()
	svc := service.NewWorkflowService(
		repository.NewMemorySchedulesRepo(),
		repository.NewMemoryRecordsRepo(),
		assets,
		nil,
		logger,
	)
	router := NewRouter(logger)
	router.RegisterWorkflowRoutes(svc)
	return &testEnv{router: router, assets: assets}
}

func adminHeaders(req *http.Request, department string) {
	req.Header.Set(HeaderUserID, "admin-1")
	req.Header.Set(HeaderUserName, "Admin")
	req.Header.Set(HeaderDepartment, department)
	req.Header.Set(HeaderRole, "manager")
	req.Header.Set(HeaderAccessLevel, "department_admin")
}

func techHeaders(req *http.Request, department string) {
	req.Header.Set(HeaderUserID, "tech-1")
	req.Header.Set(HeaderUserName, "Tech")
	req.Header.Set(HeaderDepartment, department)
	req.Header.Set(HeaderRole, "technician")
	req.Header.Set(HeaderAccessLevel, "normal_user")
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	var envelope map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	}
	return rr, envelope
}

func (e *testEnv) seedAsset(t *testing.T, department string) string {
	t.Helper()
	id, err := e.assets.CreateAsset(context.Background(), &domain.Asset{
		Name:       "CNC Machine #3",
		Tag:        "AST-" + department,
		Category:   "machinery",
		Location:   "Building A",
		Department: department,
		Status:     domain.AssetOperational,
	})
	require.NoError(t, err)
	return id
}

func TestWorkflowRoutes_MissingHeadersUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules", nil)
	rr, envelope := env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, float64(ResultError), envelope["code"])
}

func TestWorkflowRoutes_BadAccessLevelUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderDepartment, "Production")
	req.Header.Set(HeaderRole, "technician")
	req.Header.Set(HeaderAccessLevel, "root") // 未知级别不降级，直接 401
	rr, _ := env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateScheduleHTTP_InvalidFrequency(t *testing.T) {
	env := newTestEnv(t)
	assetID := env.seedAsset(t, "Production")

	body, _ := json.Marshal(map[string]any{
		"asset_id":   assetID,
		"title":      "Monthly lubrication",
		"frequency":  "fortnightly",
		"start_date": "2024-01-15",
		"priority":   "high",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/schedules", bytes.NewReader(body))
	adminHeaders(req, "Production")
	rr, _ := env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateScheduleHTTP_CustomFrequencyBounds(t *testing.T) {
	env := newTestEnv(t)
	assetID := env.seedAsset(t, "Production")

	for _, days := range []int{0, 4000} {
		body, _ := json.Marshal(map[string]any{
			"asset_id":              assetID,
			"title":                 "Custom check",
			"frequency":             "custom",
			"custom_frequency_days": days,
			"start_date":            "2024-01-15",
			"priority":              "low",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/schedules", bytes.NewReader(body))
		adminHeaders(req, "Production")
		rr, _ := env.do(t, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, "days=%d", days)
	}
}

// 完整 HTTP 流：建计划 → 提交记录 → 审核 → 重复审核 409
func TestWorkflowHTTP_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	assetID := env.seedAsset(t, "Production")

	body, _ := json.Marshal(map[string]any{
		"asset_id":   assetID,
		"title":      "Monthly lubrication",
		"frequency":  "monthly",
		"start_date": "2024-01-15",
		"priority":   "high",
		"template":   map[string]any{"parts": []map[string]any{{"name": "spindle", "required": true}}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/schedules", bytes.NewReader(body))
	adminHeaders(req, "Production")
	rr, envelope := env.do(t, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	result := envelope["result"].(map[string]any)
	scheduleID := result["schedule_id"].(string)
	require.Equal(t, "2024-02-15", result["next_due_date"])
	// 固定在过去的日期，推导状态必为 overdue
	require.Equal(t, "overdue", result["status"])

	// 技师提交完成记录
	recBody, _ := json.Marshal(map[string]any{
		"schedule_id":           scheduleID,
		"completed_date":        "2024-02-20",
		"start_time":            "09:00",
		"end_time":              "10:30",
		"actual_duration_hours": 1.5,
		"status":                "completed",
		"overall_condition":     "good",
		"results":               map[string]any{"parts": []map[string]any{{"name": "spindle", "completed": true}}},
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/records", bytes.NewReader(recBody))
	techHeaders(req, "Production")
	rr, envelope = env.do(t, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	recordID := envelope["result"].(map[string]any)["record_id"].(string)

	// 计划推进到 3/20
	req = httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules/"+scheduleID, nil)
	techHeaders(req, "Production")
	rr, envelope = env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "2024-03-20", envelope["result"].(map[string]any)["next_due_date"])

	// 技师审核 → 403
	req = httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/records/"+recordID+"/verify", bytes.NewReader([]byte(`{}`)))
	techHeaders(req, "Production")
	rr, _ = env.do(t, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	// 部门管理员审核 → 200
	req = httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/records/"+recordID+"/verify",
		bytes.NewReader([]byte(`{"notes":"checked"}`)))
	adminHeaders(req, "Production")
	rr, envelope = env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, true, envelope["result"].(map[string]any)["admin_verified"])

	// 重复审核 → 409
	req = httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/records/"+recordID+"/verify", bytes.NewReader([]byte(`{}`)))
	adminHeaders(req, "Production")
	rr, _ = env.do(t, req)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestWorkflowHTTP_KindIsolation(t *testing.T) {
	env := newTestEnv(t)
	assetID := env.seedAsset(t, "Production")

	body, _ := json.Marshal(map[string]any{
		"asset_id":   assetID,
		"title":      "Fire check",
		"frequency":  "weekly",
		"start_date": "2024-01-01",
		"priority":   "critical",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/safety/schedules", bytes.NewReader(body))
	adminHeaders(req, "Production")
	rr, envelope := env.do(t, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	scheduleID := envelope["result"].(map[string]any)["schedule_id"].(string)

	// safety 计划在 maintenance 路由下不可见
	req = httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules/"+scheduleID, nil)
	adminHeaders(req, "Production")
	rr, _ = env.do(t, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/safety/schedules/"+scheduleID, nil)
	adminHeaders(req, "Production")
	rr, _ = env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestWorkflowHTTP_ScopeContainment(t *testing.T) {
	env := newTestEnv(t)
	prodAsset := env.seedAsset(t, "Production")
	facAsset := env.seedAsset(t, "Facilities")

	for i, asset := range []string{prodAsset, facAsset} {
		dept := []string{"Production", "Facilities"}[i]
		body, _ := json.Marshal(map[string]any{
			"asset_id":   asset,
			"title":      fmt.Sprintf("Check %s", dept),
			"frequency":  "monthly",
			"start_date": "2024-01-01",
			"priority":   "low",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/schedules", bytes.NewReader(body))
		adminHeaders(req, dept)
		rr, _ := env.do(t, req)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	// Production 技师列表只有本部门
	req := httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules", nil)
	techHeaders(req, "Production")
	rr, envelope := env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, float64(1), envelope["result"].(map[string]any)["total"])

	// 指定别的部门 → 空集
	req = httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules?department=Facilities", nil)
	techHeaders(req, "Production")
	rr, envelope = env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, float64(0), envelope["result"].(map[string]any)["total"])

	// 跨部门直读 → 403
	req = httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules", nil)
	adminHeaders(req, "Facilities")
	rr, envelope = env.do(t, req)
	require.Equal(t, http.StatusOK, rr.Code)
	items := envelope["result"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	facilityRecord := items[0].(map[string]any)["schedule_id"].(string)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/schedules/"+facilityRecord, nil)
	techHeaders(req, "Production")
	rr, _ = env.do(t, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRecordHTTP_BadTimeFormat(t *testing.T) {
	env := newTestEnv(t)

	recBody, _ := json.Marshal(map[string]any{
		"asset_id":       "a1",
		"department":     "Production",
		"completed_date": "2024-02-20",
		"start_time":     "9am",
		"status":         "completed",
		"overall_condition": "good",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/records", bytes.NewReader(recBody))
	techHeaders(req, "Production")
	rr, _ := env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
