package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 领域错误 → HTTP 状态码的唯一映射点。
// 未识别的错误一律 500，不向客户端泄漏内部细节。
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	}
	writeJSON(w, status, Fail(msg))
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// parseDate 解析 YYYY-MM-DD 或 RFC3339
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}

// writePage 分页列表响应的统一外壳
func writePage[T any](w http.ResponseWriter, items []T, total, page, size int) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, Ok(models.PagedResult[T]{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}))
}

// pagination 读取 page/size 查询参数（默认 1/50，size 上限 500）
func pagination(r *http.Request) (int, int) {
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 50)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 500 {
		size = 50
	}
	return page, size
}
