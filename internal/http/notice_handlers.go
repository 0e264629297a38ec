package httpapi

import (
	"net/http"
	"strings"

	"cmms-data/internal/domain"
	"cmms-data/internal/service"
)

// NoticesHandler 通知公告。草稿/发布语义在 NoticeService 里。
type NoticesHandler struct {
	Svc *service.NoticeService
}

func NewNoticesHandler(svc *service.NoticeService) *NoticesHandler {
	return &NoticesHandler{Svc: svc}
}

type noticePayload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Department string `json:"department"`
	Priority   string `json:"priority"`
}

func (h *NoticesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/notices")
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
		if tail, ok := strings.CutSuffix(id, "/publish"); ok && tail != "" {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.publish(w, r, actor, tail)
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

func (h *NoticesHandler) list(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	q := r.URL.Query()
	publishedOnly := q.Get("published_only") != "false"
	page, size := pagination(r)
	items, total, err := h.Svc.ListNotices(r.Context(), actor, q.Get("department"), publishedOnly, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *NoticesHandler) get(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	n, err := h.Svc.GetNotice(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

func (h *NoticesHandler) create(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload noticePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	priority := domain.Priority(payload.Priority)
	if payload.Priority == "" {
		priority = domain.PriorityMedium
	}
	n, err := h.Svc.CreateNotice(r.Context(), actor, &domain.Notice{
		Title:      payload.Title,
		Body:       payload.Body,
		Department: payload.Department,
		Priority:   priority,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(n))
}

func (h *NoticesHandler) update(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	var payload noticePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	priority := domain.Priority(payload.Priority)
	if payload.Priority == "" {
		priority = domain.PriorityMedium
	}
	n, err := h.Svc.UpdateNotice(r.Context(), actor, &domain.Notice{
		NoticeID: id,
		Title:    payload.Title,
		Body:     payload.Body,
		Priority: priority,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

func (h *NoticesHandler) publish(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	n, err := h.Svc.PublishNotice(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

func (h *NoticesHandler) delete(w http.ResponseWriter, r *http.Request, actor domain.Actor, id string) {
	if err := h.Svc.DeleteNotice(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"notice_id": id}))
}
