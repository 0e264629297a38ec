package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
)

// DepartmentsHandler 部门管理。部门是平台级资源：
// 写入仅限 super_admin，读取任何已认证用户可见（做部门下拉用）。
type DepartmentsHandler struct {
	Repo repository.DepartmentsRepository
}

func NewDepartmentsHandler(repo repository.DepartmentsRepository) *DepartmentsHandler {
	return &DepartmentsHandler{Repo: repo}
}

type departmentPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HeadName    string `json:"head_name"`
	HeadEmail   string `json:"head_email"`
	Active      *bool  `json:"active"`
}

func (h *DepartmentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	const prefix = "/api/v1/departments"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	switch {
	case rest == "" || rest == "/":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
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
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, actor, id)
		case http.MethodDelete:
			h.delete(w, r, actor, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func requirePlatformAdmin(actor domain.Actor) error {
	if actor.AccessLevel != domain.AccessSuperAdmin {
		return fmt.Errorf("platform admin required: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (h *DepartmentsHandler) list(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	activeOnly := r.URL.Query().Get("active_only") == "true"
	items, total, err := h.Repo.ListDepartments(r.Context(), activeOnly, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *DepartmentsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	d, err := h.Repo.GetDepartment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(d))
}

func (h *DepartmentsHandler) create(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	if err := requirePlatformAdmin(actor); err != nil {
		writeError(w, err)
		return
	}
	var payload departmentPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := requireNonEmpty("name", payload.Name); err != nil {
		writeError(w, err)
		return
	}
	d := &domain.Department{
		Name:        payload.Name,
		Description: payload.Description,
		HeadName:    payload.HeadName,
		HeadEmail:   payload.HeadEmail,
		Active:      true,
	}
	if payload.Active != nil {
		d.Active = *payload.Active
	}
	if _, err := h.Repo.CreateDepartment(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(d))
}

func (h *DepartmentsHandler) update(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	if err := requirePlatformAdmin(actor); err != nil {
		writeError(w, err)
		return
	}
	existing, err := h.Repo.GetDepartment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload departmentPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.Name != "" {
		existing.Name = payload.Name
	}
	existing.Description = payload.Description
	existing.HeadName = payload.HeadName
	existing.HeadEmail = payload.HeadEmail
	if payload.Active != nil {
		existing.Active = *payload.Active
	}
	if err := h.Repo.UpdateDepartment(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(existing))
}

func (h *DepartmentsHandler) delete(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	if err := requirePlatformAdmin(actor); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.DeleteDepartment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"department_id": id}))
}
