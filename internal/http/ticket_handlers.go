package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
)

// TicketsHandler 报修工单。创建是自助写入（本部门任何用户可报修）；
// 指派/状态流转/删除是管理性写入，报修人可以补充描述。
type TicketsHandler struct {
	Repo repository.TicketsRepository
}

func NewTicketsHandler(repo repository.TicketsRepository) *TicketsHandler {
	return &TicketsHandler{Repo: repo}
}

type ticketPayload struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Department   string `json:"department"`
	AssetID      string `json:"asset_id"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
}

func (h *TicketsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tickets")
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
	case rest == "/stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.stats(w, r, actor)
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

func (h *TicketsHandler) list(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	q := r.URL.Query()
	filters := repository.TicketFilters{
		Department: q.Get("department"),
		AssetID:    q.Get("asset_id"),
		Status:     domain.TicketStatus(q.Get("status")),
		Priority:   domain.Priority(q.Get("priority")),
		ReporterID: q.Get("reporter_id"),
		AssigneeID: q.Get("assignee_id"),
	}
	page, size := pagination(r)
	if scope, restricted := domain.ScopeFilter(actor); restricted {
		if filters.Department != "" && filters.Department != scope {
			writePage(w, []*domain.Ticket{}, 0, page, size)
			return
		}
		filters.Department = scope
	}
	items, total, err := h.Repo.ListTickets(r.Context(), &filters, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *TicketsHandler) stats(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	department := r.URL.Query().Get("department")
	if scope, restricted := domain.ScopeFilter(actor); restricted {
		if department != "" && department != scope {
			writeJSON(w, http.StatusOK, Ok(&repository.TicketStats{
				ByStatus: map[string]int{}, ByPriority: map[string]int{},
			}))
			return
		}
		department = scope
	}
	stats, err := h.Repo.Stats(r.Context(), department)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

func (h *TicketsHandler) get(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	t, err := h.Repo.GetTicket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, t.Department, domain.ActionRead); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(t))
}

func (h *TicketsHandler) create(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload ticketPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := requireNonEmpty("title", payload.Title); err != nil {
		writeError(w, err)
		return
	}
	if payload.Department == "" {
		payload.Department = actor.Department
	}
	priority := domain.Priority(payload.Priority)
	if payload.Priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		writeError(w, fmt.Errorf("%w: invalid priority %q", domain.ErrInvalidInput, payload.Priority))
		return
	}
	if err := domain.Authorize(actor, payload.Department, domain.ActionSelfWrite); err != nil {
		writeError(w, err)
		return
	}

	t := &domain.Ticket{
		Title:        payload.Title,
		Description:  payload.Description,
		Department:   payload.Department,
		AssetID:      payload.AssetID,
		Priority:     priority,
		Status:       domain.TicketOpen,
		ReporterID:   actor.UserID,
		ReporterName: actor.Name,
	}
	if _, err := h.Repo.CreateTicket(r.Context(), t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(t))
}

func (h *TicketsHandler) update(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetTicket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload ticketPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}

	reporter := actor.UserID == existing.ReporterID
	if reporter {
		if err := domain.Authorize(actor, existing.Department, domain.ActionSelfWrite); err != nil {
			writeError(w, err)
			return
		}
	} else {
		if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
			writeError(w, err)
			return
		}
	}

	if payload.Title != "" {
		existing.Title = payload.Title
	}
	if payload.Description != "" {
		existing.Description = payload.Description
	}
	if payload.Priority != "" {
		priority := domain.Priority(payload.Priority)
		if !domain.ValidPriority(priority) {
			writeError(w, fmt.Errorf("%w: invalid priority %q", domain.ErrInvalidInput, payload.Priority))
			return
		}
		existing.Priority = priority
	}

	// 指派与状态流转是管理动作，报修人不可操作
	if payload.Status != "" || payload.AssigneeID != "" {
		if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
			writeError(w, err)
			return
		}
	}
	if payload.AssigneeID != "" {
		existing.AssigneeID = payload.AssigneeID
		existing.AssigneeName = payload.AssigneeName
	}
	if payload.Status != "" {
		status := domain.TicketStatus(payload.Status)
		if !domain.ValidTicketStatus(status) {
			writeError(w, fmt.Errorf("%w: invalid ticket status %q", domain.ErrInvalidInput, payload.Status))
			return
		}
		if status == domain.TicketResolved && existing.Status != domain.TicketResolved {
			now := time.Now().UTC()
			existing.ResolvedAt = &now
		}
		existing.Status = status
	}

	if err := h.Repo.UpdateTicket(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(existing))
}

func (h *TicketsHandler) delete(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetTicket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	if err := domain.RequireManagerial(actor); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.DeleteTicket(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"ticket_id": id}))
}
