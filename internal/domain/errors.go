package domain

import "errors"

// 错误分类（对应 HTTP 层的状态码映射）
// InvalidInput→400, Unauthenticated→401, Unauthorized→403,
// NotFound→404, Conflict→409, Unavailable→503
var (
	// ErrInvalidInput 字段格式或取值非法（在任何写入之前检测）
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated 无法从请求解析出操作者身份
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized 身份有效但权限检查拒绝
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound 引用的资源不存在
	ErrNotFound = errors.New("not found")

	// ErrConflict 违反单向状态转换（如重复审核）
	ErrConflict = errors.New("conflict")

	// ErrUnavailable 底层存储不可用（原样上抛，不吞掉）
	ErrUnavailable = errors.New("store unavailable")
)
