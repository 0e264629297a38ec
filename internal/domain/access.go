package domain

// Action 访问动作类型
//   - ActionRead: 读取/列表
//   - ActionSelfWrite: 自助写入（提交自己的维护记录、标记自己的消息已读）
//   - ActionWrite: 管理性写入（创建/更新/删除计划、审核记录、发布公告、删除工单）
type Action string

const (
	ActionRead      Action = "read"
	ActionSelfWrite Action = "self_write"
	ActionWrite     Action = "write"
)

// CanAccess 统一权限判定：给定操作者与目标资源归属部门，判定是否允许。
// 纯函数，无 I/O；所有资源的权限检查都走这一个入口。
//
//   - super_admin: 读写均放行
//   - department_admin: 同部门读写放行
//   - normal_user: 同部门读放行；写只允许自助动作；管理性写入一律拒绝
//
// targetDepartment == "" 表示平台级资源（如全员公告），只受层级约束。
func CanAccess(actor Actor, targetDepartment string, action Action) bool {
	switch actor.AccessLevel {
	case AccessSuperAdmin:
		return true
	case AccessDepartmentAdmin:
		return targetDepartment == "" || actor.Department == targetDepartment
	case AccessNormalUser:
		if targetDepartment != "" && actor.Department != targetDepartment {
			return false
		}
		return action == ActionRead || action == ActionSelfWrite
	}
	return false
}

// Authorize CanAccess 的 error 包装，拒绝时返回 ErrUnauthorized
func Authorize(actor Actor, targetDepartment string, action Action) error {
	if !CanAccess(actor, targetDepartment, action) {
		return ErrUnauthorized
	}
	return nil
}

// RequireManagerial 角色门槛叠加检查：部分操作在层级放行之外
// 还要求 admin/manager 岗位（如创建计划、发布公告）
func RequireManagerial(actor Actor) error {
	if !actor.Managerial() {
		return ErrUnauthorized
	}
	return nil
}

// ScopeFilter 列表/聚合查询的部门过滤谓词。
// super_admin 不过滤；其余层级一律收窄到本部门。
// 返回 (department, restricted)：restricted=false 表示无过滤。
func ScopeFilter(actor Actor) (string, bool) {
	if actor.AccessLevel == AccessSuperAdmin {
		return "", false
	}
	return actor.Department, true
}
