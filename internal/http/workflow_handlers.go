package httpapi

import (
	"net/http"
	"strings"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
	"cmms-data/internal/service"

	"go.uber.org/zap"
)

// WorkflowHandler 周期巡检工作流的 HTTP 入口。
// maintenance 与 safety 各挂一个实例，只差 kind 与路由前缀。
type WorkflowHandler struct {
	kind   domain.ScheduleKind
	base   string // 如 "/api/v1/maintenance"
	svc    *service.WorkflowService
	logger *zap.Logger
}

func NewWorkflowHandler(kind domain.ScheduleKind, base string, svc *service.WorkflowService, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{kind: kind, base: base, svc: svc, logger: logger}
}

// --- 传输对象 ---

type schedulePayload struct {
	AssetID             string                   `json:"asset_id"`
	Title               string                   `json:"title"`
	Description         string                   `json:"description"`
	Frequency           string                   `json:"frequency"`
	CustomFrequencyDays int                      `json:"custom_frequency_days"`
	StartDate           string                   `json:"start_date"` // YYYY-MM-DD
	Priority            string                   `json:"priority"`
	RiskLevel           string                   `json:"risk_level"`
	Template            domain.WorkTemplate      `json:"template"`
}

type scheduleView struct {
	ScheduleID          string              `json:"schedule_id"`
	Kind                string              `json:"kind"`
	AssetID             string              `json:"asset_id"`
	AssetName           string              `json:"asset_name"`
	Location            string              `json:"location"`
	Department          string              `json:"department"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Frequency           string              `json:"frequency"`
	CustomFrequencyDays int                 `json:"custom_frequency_days,omitempty"`
	StartDate           string              `json:"start_date"`
	NextDueDate         string              `json:"next_due_date"`
	LastCompletedDate   string              `json:"last_completed_date,omitempty"`
	Priority            string              `json:"priority"`
	RiskLevel           string              `json:"risk_level,omitempty"`
	Status              string              `json:"status"`
	Template            domain.WorkTemplate `json:"template"`
	CreatedBy           string              `json:"created_by"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func toScheduleView(s *domain.Schedule, now time.Time) scheduleView {
	v := scheduleView{
		ScheduleID:          s.ScheduleID,
		Kind:                string(s.Kind),
		AssetID:             s.AssetID,
		AssetName:           s.AssetName,
		Location:            s.Location,
		Department:          s.Department,
		Title:               s.Title,
		Description:         s.Description,
		Frequency:           string(s.Frequency),
		CustomFrequencyDays: s.CustomFrequencyDays,
		StartDate:           s.StartDate.Format("2006-01-02"),
		NextDueDate:         s.NextDueDate.Format("2006-01-02"),
		Priority:            string(s.Priority),
		RiskLevel:           string(s.RiskLevel),
		Status:              string(s.Status(now)),
		Template:            s.Template,
		CreatedBy:           s.CreatedBy,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	if s.LastCompletedDate != nil {
		v.LastCompletedDate = s.LastCompletedDate.Format("2006-01-02")
	}
	return v
}

type recordPayload struct {
	ScheduleID          string            `json:"schedule_id"`
	AssetID             string            `json:"asset_id"`
	AssetName           string            `json:"asset_name"`
	Location            string            `json:"location"`
	Department          string            `json:"department"`
	CompletedDate       string            `json:"completed_date"` // YYYY-MM-DD
	StartTime           string            `json:"start_time"`     // HH:MM
	EndTime             string            `json:"end_time"`       // HH:MM
	ActualDurationHours float64           `json:"actual_duration_hours"`
	Status              string            `json:"status"`
	OverallCondition    string            `json:"overall_condition"`
	Notes               string            `json:"notes"`
	Results             domain.WorkResult `json:"results"`
}

type recordView struct {
	RecordID            string            `json:"record_id"`
	Kind                string            `json:"kind"`
	ScheduleID          string            `json:"schedule_id,omitempty"`
	AssetID             string            `json:"asset_id"`
	AssetName           string            `json:"asset_name"`
	Location            string            `json:"location"`
	Department          string            `json:"department"`
	CompletedDate       string            `json:"completed_date"`
	StartTime           string            `json:"start_time,omitempty"`
	EndTime             string            `json:"end_time,omitempty"`
	ActualDurationHours float64           `json:"actual_duration_hours"`
	TechnicianID        string            `json:"technician_id"`
	TechnicianName      string            `json:"technician_name"`
	Status              string            `json:"status"`
	OverallCondition    string            `json:"overall_condition"`
	Notes               string            `json:"notes,omitempty"`
	Results             domain.WorkResult `json:"results"`
	AdminVerified       bool              `json:"admin_verified"`
	AdminVerifiedBy     string            `json:"admin_verified_by,omitempty"`
	AdminVerifiedAt     *time.Time        `json:"admin_verified_at,omitempty"`
	AdminNotes          string            `json:"admin_notes,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func toRecordView(rec *domain.Record) recordView {
	return recordView{
		RecordID:            rec.RecordID,
		Kind:                string(rec.Kind),
		ScheduleID:          rec.ScheduleID,
		AssetID:             rec.AssetID,
		AssetName:           rec.AssetName,
		Location:            rec.Location,
		Department:          rec.Department,
		CompletedDate:       rec.CompletedDate.Format("2006-01-02"),
		StartTime:           rec.StartTime,
		EndTime:             rec.EndTime,
		ActualDurationHours: rec.ActualDurationHours,
		TechnicianID:        rec.TechnicianID,
		TechnicianName:      rec.TechnicianName,
		Status:              string(rec.Status),
		OverallCondition:    string(rec.OverallCondition),
		Notes:               rec.Notes,
		Results:             rec.Results,
		AdminVerified:       rec.AdminVerified,
		AdminVerifiedBy:     rec.AdminVerifiedBy,
		AdminVerifiedAt:     rec.AdminVerifiedAt,
		AdminNotes:          rec.AdminNotes,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

// --- 路由分发 ---

func (h *WorkflowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, h.base)
	switch {
	case rest == "/schedules":
		switch r.Method {
		case http.MethodPost:
			h.createSchedule(w, r, actor)
		case http.MethodGet:
			h.listSchedules(w, r, actor)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(rest, "/schedules/"):
		id := strings.TrimPrefix(rest, "/schedules/")
		if tail, ok := strings.CutSuffix(id, "/status"); ok && tail != "" {
			if r.Method != http.MethodPut {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.setScheduleStatus(w, r, actor, tail)
			return
		}
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.getSchedule(w, r, actor, id)
		case http.MethodPut:
			h.updateSchedule(w, r, actor, id)
		case http.MethodDelete:
			h.deleteSchedule(w, r, actor, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case rest == "/records":
		switch r.Method {
		case http.MethodPost:
			h.fileRecord(w, r, actor)
		case http.MethodGet:
			h.listRecords(w, r, actor)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(rest, "/records/"):
		id := strings.TrimPrefix(rest, "/records/")
		if tail, ok := strings.CutSuffix(id, "/verify"); ok && tail != "" {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.verifyRecord(w, r, actor, tail)
			return
		}
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.getRecord(w, r, actor, id)
		case http.MethodPut:
			h.updateRecord(w, r, actor, id)
		case http.MethodDelete:
			h.deleteRecord(w, r, actor, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case rest == "/stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.stats(w, r, actor)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- 计划 ---

func (h *WorkflowHandler) createSchedule(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload schedulePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	sched, err := h.scheduleFromPayload(&payload)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.svc.CreateSchedule(r.Context(), actor, sched)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(toScheduleView(created, time.Now().UTC())))
}

func (h *WorkflowHandler) scheduleFromPayload(payload *schedulePayload) (*domain.Schedule, error) {
	if err := requireNonEmpty("title", payload.Title); err != nil {
		return nil, err
	}
	start, err := parseDate(payload.StartDate)
	if err != nil {
		return nil, errInvalidDate("start_date")
	}
	return &domain.Schedule{
		Kind:                h.kind,
		AssetID:             payload.AssetID,
		Title:               payload.Title,
		Description:         payload.Description,
		Frequency:           domain.Frequency(payload.Frequency),
		CustomFrequencyDays: payload.CustomFrequencyDays,
		StartDate:           start,
		Priority:            domain.Priority(payload.Priority),
		RiskLevel:           domain.RiskLevel(payload.RiskLevel),
		Template:            payload.Template,
	}, nil
}

func (h *WorkflowHandler) listSchedules(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	q := r.URL.Query()
	filters := repository.ScheduleFilters{
		Kind:       h.kind,
		Department: q.Get("department"),
		AssetID:    q.Get("asset_id"),
		Frequency:  domain.Frequency(q.Get("frequency")),
		Priority:   domain.Priority(q.Get("priority")),
	}
	if s := q.Get("due_before"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeError(w, errInvalidDate("due_before"))
			return
		}
		filters.DueBefore = &t
	}
	if s := q.Get("due_after"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeError(w, errInvalidDate("due_after"))
			return
		}
		filters.DueAfter = &t
	}
	page, size := pagination(r)

	items, total, err := h.svc.ListSchedules(r.Context(), actor, filters,
		domain.ScheduleStatus(q.Get("status")), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now().UTC()
	out := make([]scheduleView, 0, len(items))
	for _, s := range items {
		out = append(out, toScheduleView(s, now))
	}
	writePage(w, out, total, page, size)
}

func (h *WorkflowHandler) getSchedule(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	sched, err := h.svc.GetSchedule(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if sched.Kind != h.kind {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toScheduleView(sched, time.Now().UTC())))
}

func (h *WorkflowHandler) updateSchedule(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	var payload schedulePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	sched, err := h.scheduleFromPayload(&payload)
	if err != nil {
		writeError(w, err)
		return
	}
	sched.ScheduleID = id
	updated, err := h.svc.UpdateSchedule(r.Context(), actor, sched)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toScheduleView(updated, time.Now().UTC())))
}

func (h *WorkflowHandler) setScheduleStatus(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<16, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.SetScheduleOverride(r.Context(), actor, id, domain.ScheduleStatus(payload.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"schedule_id": id, "status": payload.Status}))
}

func (h *WorkflowHandler) deleteSchedule(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	if err := h.svc.DeleteSchedule(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"schedule_id": id}))
}

// --- 记录 ---

func (h *WorkflowHandler) fileRecord(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload recordPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.recordFromPayload(&payload)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.svc.FileRecord(r.Context(), actor, rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(toRecordView(created)))
}

func (h *WorkflowHandler) recordFromPayload(payload *recordPayload) (*domain.Record, error) {
	if err := requireHHMM("start_time", payload.StartTime); err != nil {
		return nil, err
	}
	if err := requireHHMM("end_time", payload.EndTime); err != nil {
		return nil, err
	}
	completed, err := parseDate(payload.CompletedDate)
	if err != nil {
		return nil, errInvalidDate("completed_date")
	}
	return &domain.Record{
		Kind:                h.kind,
		ScheduleID:          payload.ScheduleID,
		AssetID:             payload.AssetID,
		AssetName:           payload.AssetName,
		Location:            payload.Location,
		Department:          payload.Department,
		CompletedDate:       completed,
		StartTime:           payload.StartTime,
		EndTime:             payload.EndTime,
		ActualDurationHours: payload.ActualDurationHours,
		Status:              domain.RecordStatus(payload.Status),
		OverallCondition:    domain.Condition(payload.OverallCondition),
		Notes:               payload.Notes,
		Results:             payload.Results,
	}, nil
}

func (h *WorkflowHandler) listRecords(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	q := r.URL.Query()
	filters := repository.RecordFilters{
		Kind:         h.kind,
		Department:   q.Get("department"),
		AssetID:      q.Get("asset_id"),
		ScheduleID:   q.Get("schedule_id"),
		TechnicianID: q.Get("technician_id"),
		Status:       domain.RecordStatus(q.Get("status")),
	}
	if s := q.Get("verified"); s != "" {
		v := s == "true"
		filters.Verified = &v
	}
	if s := q.Get("from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeError(w, errInvalidDate("from"))
			return
		}
		filters.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeError(w, errInvalidDate("to"))
			return
		}
		filters.To = &t
	}
	page, size := pagination(r)

	items, total, err := h.svc.ListRecords(r.Context(), actor, filters, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]recordView, 0, len(items))
	for _, rec := range items {
		out = append(out, toRecordView(rec))
	}
	writePage(w, out, total, page, size)
}

func (h *WorkflowHandler) getRecord(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	rec, err := h.svc.GetRecord(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.Kind != h.kind {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toRecordView(rec)))
}

func (h *WorkflowHandler) updateRecord(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	var payload recordPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.recordFromPayload(&payload)
	if err != nil {
		writeError(w, err)
		return
	}
	rec.RecordID = id
	updated, err := h.svc.UpdateRecord(r.Context(), actor, rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toRecordView(updated)))
}

func (h *WorkflowHandler) verifyRecord(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	var payload struct {
		Notes string `json:"notes"`
	}
	if err := readBodyJSON(r, 1<<16, &payload); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.svc.VerifyRecord(r.Context(), actor, id, payload.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toRecordView(rec)))
}

func (h *WorkflowHandler) deleteRecord(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	if err := h.svc.DeleteRecord(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"record_id": id}))
}

// --- 统计 ---

func (h *WorkflowHandler) stats(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	stats, err := h.svc.Stats(r.Context(), actor, h.kind, r.URL.Query().Get("department"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}
