package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
)

// ShiftsHandler 排班明细。排班是管理性写入，读取按部门范围过滤。
type ShiftsHandler struct {
	Repo      repository.ShiftsRepository
	Employees repository.EmployeesRepository
}

func NewShiftsHandler(repo repository.ShiftsRepository, employees repository.EmployeesRepository) *ShiftsHandler {
	return &ShiftsHandler{Repo: repo, Employees: employees}
}

type shiftPayload struct {
	EmployeeID string   `json:"employee_id"`
	ShiftType  string   `json:"shift_type"`
	Weekdays   []string `json:"weekdays"`
	StartTime  string   `json:"start_time"` // HH:MM
	EndTime    string   `json:"end_time"`   // HH:MM
}

var validWeekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

func (h *ShiftsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/shifts")
	switch {
	case rest == "" || rest == "/":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r, actor)
		case http.MethodPost:
			h.create(w, r, actor)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		id := strings.TrimPrefix(rest, "/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, actor, id)
		case http.MethodPut:
			h.update(w, r, actor, id)
		case http.MethodDelete:
			h.delete(w, r, actor, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (h *ShiftsHandler) list(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	q := r.URL.Query()
	filters := repository.ShiftFilters{
		Department: q.Get("department"),
		EmployeeID: q.Get("employee_id"),
		ShiftType:  domain.ShiftType(q.Get("shift_type")),
	}
	page, size := pagination(r)
	if scope, restricted := domain.ScopeFilter(actor); restricted {
		if filters.Department != "" && filters.Department != scope {
			writePage(w, []*domain.ShiftDetail{}, 0, page, size)
			return
		}
		filters.Department = scope
	}
	items, total, err := h.Repo.ListShifts(r.Context(), &filters, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *ShiftsHandler) get(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	s, err := h.Repo.GetShift(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, s.Department, domain.ActionRead); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(s))
}

func (h *ShiftsHandler) validate(payload *shiftPayload) error {
	if !domain.ValidShiftType(domain.ShiftType(payload.ShiftType)) {
		return fmt.Errorf("%w: invalid shift type %q", domain.ErrInvalidInput, payload.ShiftType)
	}
	for _, d := range payload.Weekdays {
		if !validWeekdays[d] {
			return fmt.Errorf("%w: invalid weekday %q", domain.ErrInvalidInput, d)
		}
	}
	if err := requireHHMM("start_time", payload.StartTime); err != nil {
		return err
	}
	return requireHHMM("end_time", payload.EndTime)
}

func (h *ShiftsHandler) create(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload shiftPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := requireNonEmpty("employee_id", payload.EmployeeID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate(&payload); err != nil {
		writeError(w, err)
		return
	}
	emp, err := h.Employees.GetEmployee(r.Context(), payload.EmployeeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, emp.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}

	s := &domain.ShiftDetail{
		EmployeeID:   emp.EmployeeID,
		EmployeeName: emp.Name,
		Department:   emp.Department,
		ShiftType:    domain.ShiftType(payload.ShiftType),
		Weekdays:     payload.Weekdays,
		StartTime:    payload.StartTime,
		EndTime:      payload.EndTime,
	}
	if _, err := h.Repo.CreateShift(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(s))
}

func (h *ShiftsHandler) update(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetShift(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	var payload shiftPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.ShiftType == "" {
		payload.ShiftType = string(existing.ShiftType)
	}
	if err := h.validate(&payload); err != nil {
		writeError(w, err)
		return
	}

	existing.ShiftType = domain.ShiftType(payload.ShiftType)
	if payload.Weekdays != nil {
		existing.Weekdays = payload.Weekdays
	}
	if payload.StartTime != "" {
		existing.StartTime = payload.StartTime
	}
	if payload.EndTime != "" {
		existing.EndTime = payload.EndTime
	}
	if err := h.Repo.UpdateShift(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(existing))
}

func (h *ShiftsHandler) delete(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetShift(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.DeleteShift(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"shift_id": id}))
}
