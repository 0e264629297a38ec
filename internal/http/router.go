package httpapi

import (
	"net/http"

	"cmms-data/internal/domain"
	"cmms-data/internal/service"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterWorkflowRoutes 注册 maintenance / safety 两套工作流路由
func (r *Router) RegisterWorkflowRoutes(svc *service.WorkflowService) {
	maintenance := NewWorkflowHandler(domain.KindMaintenance, "/api/v1/maintenance", svc, r.logger)
	r.HandleHandler("/api/v1/maintenance/", maintenance)

	safety := NewWorkflowHandler(domain.KindSafety, "/api/v1/safety", svc, r.logger)
	r.HandleHandler("/api/v1/safety/", safety)
}

// RegisterResourceRoutes 注册瘦 CRUD 资源路由
func (r *Router) RegisterResourceRoutes(
	departments *DepartmentsHandler,
	employees *EmployeesHandler,
	assets *AssetsHandler,
	tickets *TicketsHandler,
	notices *NoticesHandler,
	parts *PartsHandler,
	chat *ChatHandler,
	shifts *ShiftsHandler,
) {
	r.HandleHandler("/api/v1/departments", departments)
	r.HandleHandler("/api/v1/departments/", departments)

	r.HandleHandler("/api/v1/employees", employees)
	r.HandleHandler("/api/v1/employees/", employees)

	r.HandleHandler("/api/v1/assets", assets)
	r.HandleHandler("/api/v1/assets/", assets)

	r.HandleHandler("/api/v1/tickets", tickets)
	r.HandleHandler("/api/v1/tickets/", tickets)

	r.HandleHandler("/api/v1/notices", notices)
	r.HandleHandler("/api/v1/notices/", notices)

	r.HandleHandler("/api/v1/parts", parts)
	r.HandleHandler("/api/v1/parts/", parts)

	r.HandleHandler("/api/v1/chat/", chat)

	r.HandleHandler("/api/v1/shifts", shifts)
	r.HandleHandler("/api/v1/shifts/", shifts)
}

// RegisterHealthRoutes 健康检查（网关探活用，不鉴权）
func (r *Router) RegisterHealthRoutes(ready func() error) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	r.Handle("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, Fail("not ready"))
				return
			}
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ready"}))
	})
}
