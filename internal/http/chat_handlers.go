package httpapi

import (
	"net/http"
	"strings"

	"cmms-data/internal/domain"
	"cmms-data/internal/service"
)

// ChatHandler 站内聊天。会话键由服务端构造，客户端只给目标。
type ChatHandler struct {
	Svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{Svc: svc}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/chat")
	switch rest {
	case "/messages":
		switch r.Method {
		case http.MethodPost:
			h.send(w, r, actor)
		case http.MethodGet:
			h.listMessages(w, r, actor)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "/read":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.markRead(w, r, actor)
	case "/unread":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.unread(w, r, actor)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ChatHandler) send(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload struct {
		Department  string `json:"department"`   // 二选一：部门房间
		RecipientID string `json:"recipient_id"` // 二选一：私聊
		Body        string `json:"body"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.RecipientID != "" {
		msg, err := h.Svc.SendDirectMessage(r.Context(), actor, payload.RecipientID, payload.Body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, Ok(msg))
		return
	}
	msg, err := h.Svc.SendDepartmentMessage(r.Context(), actor, payload.Department, payload.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(msg))
}

func (h *ChatHandler) listMessages(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	conversation := r.URL.Query().Get("conversation")
	page, size := pagination(r)
	items, total, err := h.Svc.ListMessages(r.Context(), actor, conversation, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, size)
}

func (h *ChatHandler) markRead(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var payload struct {
		Conversation string `json:"conversation"`
	}
	if err := readBodyJSON(r, 1<<16, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Svc.MarkRead(r.Context(), actor, payload.Conversation); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"conversation": payload.Conversation}))
}

func (h *ChatHandler) unread(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	conversation := r.URL.Query().Get("conversation")
	count, err := h.Svc.UnreadCount(r.Context(), actor, conversation)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"conversation": conversation, "unread": count}))
}
