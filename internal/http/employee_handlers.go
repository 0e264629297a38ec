package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
)

// EmployeesHandler 员工管理。写入限本部门管理员（super_admin 全局）；
// 普通用户可读本部门名录、可改自己的联系方式。
type EmployeesHandler struct {
	Repo repository.EmployeesRepository
}

func NewEmployeesHandler(repo repository.EmployeesRepository) *EmployeesHandler {
	return &EmployeesHandler{Repo: repo}
}

type employeePayload struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Department  string   `json:"department"`
	Role        string   `json:"role"`
	AccessLevel string   `json:"access_level"`
	Skills      []string `json:"skills"`
	ShiftType   string   `json:"shift_type"`
	Active      *bool    `json:"active"`
}

func (h *EmployeesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/employees")
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

func (h *EmployeesHandler) list(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	q := r.URL.Query()
	filters := repository.EmployeeFilters{
		Department: q.Get("department"),
		Role:       domain.Role(q.Get("role")),
		ShiftType:  domain.ShiftType(q.Get("shift_type")),
		ActiveOnly: q.Get("active_only") == "true",
	}
	page, size := pagination(r)
	if scope, restricted := domain.ScopeFilter(actor); restricted {
		if filters.Department != "" && filters.Department != scope {
			writePage(w, []*domain.Employee{}, 0, page, size)
			return
		}
		filters.Department = scope
	}
	items, total, err := h.Repo.ListEmployees(r.Context(), &filters, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *EmployeesHandler) get(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	e, err := h.Repo.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, e.Department, domain.ActionRead); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(e))
}

func (h *EmployeesHandler) create(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload employeePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := requireNonEmpty("name", payload.Name); err != nil {
		writeError(w, err)
		return
	}
	if err := requireNonEmpty("department", payload.Department); err != nil {
		writeError(w, err)
		return
	}
	role := domain.Role(payload.Role)
	level := domain.AccessLevel(payload.AccessLevel)
	if !domain.ValidRole(role) {
		writeError(w, fmt.Errorf("%w: invalid role %q", domain.ErrInvalidInput, payload.Role))
		return
	}
	if !domain.ValidAccessLevel(level) {
		writeError(w, fmt.Errorf("%w: invalid access level %q", domain.ErrInvalidInput, payload.AccessLevel))
		return
	}
	// 只有平台管理员能授予 super_admin
	if level == domain.AccessSuperAdmin && actor.AccessLevel != domain.AccessSuperAdmin {
		writeError(w, fmt.Errorf("granting platform admin requires platform admin: %w", domain.ErrUnauthorized))
		return
	}
	if err := domain.Authorize(actor, payload.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}

	e := &domain.Employee{
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Department:  payload.Department,
		Role:        role,
		AccessLevel: level,
		Skills:      payload.Skills,
		ShiftType:   domain.ShiftType(payload.ShiftType),
		Active:      true,
	}
	if payload.Active != nil {
		e.Active = *payload.Active
	}
	if _, err := h.Repo.CreateEmployee(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(e))
}

func (h *EmployeesHandler) update(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload employeePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}

	self := actor.UserID == id
	if self {
		if err := domain.Authorize(actor, existing.Department, domain.ActionSelfWrite); err != nil {
			writeError(w, err)
			return
		}
		// 自助更新只能改联系方式
		if payload.Email != "" {
			existing.Email = payload.Email
		}
		if payload.Phone != "" {
			existing.Phone = payload.Phone
		}
	} else {
		if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
			writeError(w, err)
			return
		}
		if payload.Name != "" {
			existing.Name = payload.Name
		}
		if payload.Email != "" {
			existing.Email = payload.Email
		}
		if payload.Phone != "" {
			existing.Phone = payload.Phone
		}
		if payload.Role != "" {
			role := domain.Role(payload.Role)
			if !domain.ValidRole(role) {
				writeError(w, fmt.Errorf("%w: invalid role %q", domain.ErrInvalidInput, payload.Role))
				return
			}
			existing.Role = role
		}
		if payload.AccessLevel != "" {
			level := domain.AccessLevel(payload.AccessLevel)
			if !domain.ValidAccessLevel(level) {
				writeError(w, fmt.Errorf("%w: invalid access level %q", domain.ErrInvalidInput, payload.AccessLevel))
				return
			}
			if level == domain.AccessSuperAdmin && actor.AccessLevel != domain.AccessSuperAdmin {
				writeError(w, fmt.Errorf("granting platform admin requires platform admin: %w", domain.ErrUnauthorized))
				return
			}
			existing.AccessLevel = level
		}
		if payload.Skills != nil {
			existing.Skills = payload.Skills
		}
		if payload.ShiftType != "" {
			existing.ShiftType = domain.ShiftType(payload.ShiftType)
		}
		if payload.Active != nil {
			existing.Active = *payload.Active
		}
	}

	if err := h.Repo.UpdateEmployee(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(existing))
}

func (h *EmployeesHandler) delete(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.DeleteEmployee(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"employee_id": id}))
}
