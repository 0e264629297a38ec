package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
)

// AssetsHandler 设备资产管理。资产的 department 是计划归属的权威来源，
// 写入需要该部门的管理写权限。
type AssetsHandler struct {
	Repo repository.AssetsRepository
}

func NewAssetsHandler(repo repository.AssetsRepository) *AssetsHandler {
	return &AssetsHandler{Repo: repo}
}

type assetPayload struct {
	Name         string `json:"name"`
	Tag          string `json:"tag"`
	SerialNumber string `json:"serial_number"`
	Category     string `json:"category"`
	Location     string `json:"location"`
	Department   string `json:"department"`
	Status       string `json:"status"`
	PurchaseDate string `json:"purchase_date"` // YYYY-MM-DD
	WarrantyDate string `json:"warranty_date"`
	Notes        string `json:"notes"`
}

func (h *AssetsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/assets")
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

func (h *AssetsHandler) list(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	q := r.URL.Query()
	filters := repository.AssetFilters{
		Department: q.Get("department"),
		Category:   q.Get("category"),
		Location:   q.Get("location"),
		Status:     domain.AssetStatus(q.Get("status")),
	}
	page, size := pagination(r)
	if scope, restricted := domain.ScopeFilter(actor); restricted {
		if filters.Department != "" && filters.Department != scope {
			writePage(w, []*domain.Asset{}, 0, page, size)
			return
		}
		filters.Department = scope
	}
	items, total, err := h.Repo.ListAssets(r.Context(), &filters, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *AssetsHandler) stats(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	department := r.URL.Query().Get("department")
	if scope, restricted := domain.ScopeFilter(actor); restricted {
		if department != "" && department != scope {
			writeJSON(w, http.StatusOK, Ok(map[string]int{}))
			return
		}
		department = scope
	}
	stats, err := h.Repo.AssetStats(r.Context(), department)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

func (h *AssetsHandler) get(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	a, err := h.Repo.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, a.Department, domain.ActionRead); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}

func (h *AssetsHandler) assetFromPayload(payload *assetPayload) (*domain.Asset, error) {
	if err := requireNonEmpty("name", payload.Name); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("department", payload.Department); err != nil {
		return nil, err
	}
	status := domain.AssetStatus(payload.Status)
	if payload.Status == "" {
		status = domain.AssetOperational
	}
	if !domain.ValidAssetStatus(status) {
		return nil, fmt.Errorf("%w: invalid asset status %q", domain.ErrInvalidInput, payload.Status)
	}
	a := &domain.Asset{
		Name:         payload.Name,
		Tag:          payload.Tag,
		SerialNumber: payload.SerialNumber,
		Category:     payload.Category,
		Location:     payload.Location,
		Department:   payload.Department,
		Status:       status,
		Notes:        payload.Notes,
	}
	if payload.PurchaseDate != "" {
		t, err := parseDate(payload.PurchaseDate)
		if err != nil {
			return nil, errInvalidDate("purchase_date")
		}
		a.PurchaseDate = &t
	}
	if payload.WarrantyDate != "" {
		t, err := parseDate(payload.WarrantyDate)
		if err != nil {
			return nil, errInvalidDate("warranty_date")
		}
		a.WarrantyDate = &t
	}
	return a, nil
}

func (h *AssetsHandler) create(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload assetPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.assetFromPayload(&payload)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, a.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.Repo.CreateAsset(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(a))
}

func (h *AssetsHandler) update(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	var payload assetPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.Department == "" {
		payload.Department = existing.Department
	}
	a, err := h.assetFromPayload(&payload)
	if err != nil {
		writeError(w, err)
		return
	}
	// 换部门等同于把资产移交给另一个部门，需要两侧的写权限
	if a.Department != existing.Department {
		if err := domain.Authorize(actor, a.Department, domain.ActionWrite); err != nil {
			writeError(w, err)
			return
		}
	}
	a.AssetID = id
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	if err := h.Repo.UpdateAsset(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}

func (h *AssetsHandler) delete(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	existing, err := h.Repo.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.DeleteAsset(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"asset_id": id}))
}
