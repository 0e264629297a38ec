package httpapi

import (
	"fmt"
	"net/http"

	"cmms-data/internal/domain"
)

// 身份由上游网关认证后以请求头透传；本服务只做授权不做认证
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserName    = "X-User-Name"
	HeaderUserEmail   = "X-User-Email"
	HeaderDepartment  = "X-Department"
	HeaderRole        = "X-Role"
	HeaderAccessLevel = "X-Access-Level"
)

// ActorFromRequest 从请求头还原操作者。user id / role / access level
// 缺失或非法时视为未认证（401），而不是降级为匿名。
func ActorFromRequest(r *http.Request) (domain.Actor, error) {
	actor := domain.Actor{
		UserID:      r.Header.Get(HeaderUserID),
		Name:        r.Header.Get(HeaderUserName),
		Email:       r.Header.Get(HeaderUserEmail),
		Department:  r.Header.Get(HeaderDepartment),
		Role:        domain.Role(r.Header.Get(HeaderRole)),
		AccessLevel: domain.AccessLevel(r.Header.Get(HeaderAccessLevel)),
	}
	if actor.UserID == "" {
		return domain.Actor{}, fmt.Errorf("missing %s header: %w", HeaderUserID, domain.ErrUnauthenticated)
	}
	if !domain.ValidRole(actor.Role) {
		return domain.Actor{}, fmt.Errorf("invalid %s header: %w", HeaderRole, domain.ErrUnauthenticated)
	}
	if !domain.ValidAccessLevel(actor.AccessLevel) {
		return domain.Actor{}, fmt.Errorf("invalid %s header: %w", HeaderAccessLevel, domain.ErrUnauthenticated)
	}
	if actor.AccessLevel != domain.AccessSuperAdmin && actor.Department == "" {
		return domain.Actor{}, fmt.Errorf("missing %s header: %w", HeaderDepartment, domain.ErrUnauthenticated)
	}
	return actor, nil
}
