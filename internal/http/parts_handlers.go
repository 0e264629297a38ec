package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
)

// PartsHandler 备件库存。quantity 只能通过 adjust 原子增减，
// 普通更新不碰库存数；导出走 Excel。
type PartsHandler struct {
	Repo repository.PartsRepository
}

func NewPartsHandler(repo repository.PartsRepository) *PartsHandler {
	return &PartsHandler{Repo: repo}
}

type partPayload struct {
	Name        string  `json:"name"`
	PartNumber  string  `json:"part_number"`
	Category    string  `json:"category"`
	Department  string  `json:"department"`
	Quantity    int     `json:"quantity"`
	MinQuantity int     `json:"min_quantity"`
	UnitCost    float64 `json:"unit_cost"`
	Location    string  `json:"location"`
}

func (h *PartsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/parts")
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
	case rest == "/export":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, actor)
	default:
		id := strings.TrimPrefix(rest, "/")
		if tail, ok := strings.CutSuffix(id, "/adjust"); ok && tail != "" {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.adjust(w, r, actor, tail)
			return
		}
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

func (h *PartsHandler) scopedFilters(r *http.Request, actor domain.Actor) (repository.PartFilters, bool) {
	q := r.URL.Query()
	filters := repository.PartFilters{
		Department: q.Get("department"),
		Category:   q.Get("category"),
		LowStock:   q.Get("low_stock") == "true",
	}
	if scope, restricted := domain.ScopeFilter(actor); restricted {
		if filters.Department != "" && filters.Department != scope {
			return filters, false
		}
		filters.Department = scope
	}
	return filters, true
}

func (h *PartsHandler) list(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	page, size := pagination(r)
	filters, ok := h.scopedFilters(r, actor)
	if !ok {
		writePage(w, []*domain.Part{}, 0, page, size)
		return
	}
	items, total, err := h.Repo.ListParts(r.Context(), &filters, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *PartsHandler) export(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	filters, ok := h.scopedFilters(r, actor)
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	// 导出不分页，上限一次取够
	items, _, err := h.Repo.ListParts(r.Context(), &filters, 1, 10000)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := GeneratePartsExport(items)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="parts_inventory.xlsx"`)
	_, _ = w.Write(data)
}

func (h *PartsHandler) get(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	p, err := h.Repo.GetPart(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, p.Department, domain.ActionRead); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *PartsHandler) create(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload partPayload
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
	if payload.Quantity < 0 || payload.MinQuantity < 0 {
		writeError(w, fmt.Errorf("%w: quantity must be non-negative", domain.ErrInvalidInput))
		return
	}
	if err := domain.Authorize(actor, payload.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	p := &domain.Part{
		Name:        payload.Name,
		PartNumber:  payload.PartNumber,
		Category:    payload.Category,
		Department:  payload.Department,
		Quantity:    payload.Quantity,
		MinQuantity: payload.MinQuantity,
		UnitCost:    payload.UnitCost,
		Location:    payload.Location,
	}
	if _, err := h.Repo.CreatePart(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(p))
}

func (h *PartsHandler) update(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetPart(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	var payload partPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.Name != "" {
		existing.Name = payload.Name
	}
	if payload.PartNumber != "" {
		existing.PartNumber = payload.PartNumber
	}
	existing.Category = payload.Category
	existing.Location = payload.Location
	existing.UnitCost = payload.UnitCost
	if payload.MinQuantity >= 0 {
		existing.MinQuantity = payload.MinQuantity
	}
	// quantity 不在这里更新，走 /adjust
	if err := h.Repo.UpdatePart(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(existing))
}

func (h *PartsHandler) adjust(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetPart(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// 领用备件是一线动作，自助写入即可
	if err := domain.Authorize(actor, existing.Department, domain.ActionSelfWrite); err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		Delta int `json:"delta"`
	}
	if err := readBodyJSON(r, 1<<16, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.Delta == 0 {
		writeError(w, fmt.Errorf("%w: delta must be non-zero", domain.ErrInvalidInput))
		return
	}
	quantity, err := h.Repo.AdjustQuantity(r.Context(), id, payload.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"part_id": id, "quantity": quantity}))
}

func (h *PartsHandler) delete(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetPart(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.DeletePart(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"part_id": id}))
}
