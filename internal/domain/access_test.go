package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func actorWith(level AccessLevel, dept string) Actor {
	return Actor{
		UserID:      "u-1",
		Name:        "Test User",
		Department:  dept,
		Role:        RoleTechnician,
		AccessLevel: level,
	}
}

func TestCanAccess_Levels(t *testing.T) {
	const dept = "Facilities"

	super := actorWith(AccessSuperAdmin, "Somewhere Else")
	deptAdmin := actorWith(AccessDepartmentAdmin, dept)
	otherAdmin := actorWith(AccessDepartmentAdmin, "Engineering")
	user := actorWith(AccessNormalUser, dept)
	otherUser := actorWith(AccessNormalUser, "Engineering")

	// super_admin 跨部门读写均放行
	require.True(t, CanAccess(super, dept, ActionRead))
	require.True(t, CanAccess(super, dept, ActionWrite))

	// department_admin 只在本部门放行
	require.True(t, CanAccess(deptAdmin, dept, ActionRead))
	require.True(t, CanAccess(deptAdmin, dept, ActionWrite))
	require.False(t, CanAccess(otherAdmin, dept, ActionRead))
	require.False(t, CanAccess(otherAdmin, dept, ActionWrite))

	// normal_user 本部门只读 + 自助写入，管理性写入一律拒绝
	require.True(t, CanAccess(user, dept, ActionRead))
	require.True(t, CanAccess(user, dept, ActionSelfWrite))
	require.False(t, CanAccess(user, dept, ActionWrite))
	require.False(t, CanAccess(otherUser, dept, ActionRead))
	require.False(t, CanAccess(otherUser, dept, ActionSelfWrite))
}

// TestCanAccess_Monotonic 固定部门时，super_admin 的权限集合包含
// department_admin，department_admin 包含 normal_user
func TestCanAccess_Monotonic(t *testing.T) {
	const dept = "Facilities"
	actions := []Action{ActionRead, ActionSelfWrite, ActionWrite}
	levels := []AccessLevel{AccessNormalUser, AccessDepartmentAdmin, AccessSuperAdmin}

	for _, target := range []string{dept, "Engineering", ""} {
		for _, action := range actions {
			prev := true
			// 从高到低检查：低层级放行的，高层级必须也放行
			for i := len(levels) - 1; i >= 0; i-- {
				allowed := CanAccess(actorWith(levels[i], dept), target, action)
				if i < len(levels)-1 {
					require.False(t, allowed && !prev,
						"level %s allows %s on %q but a higher level denies it", levels[i], action, target)
				}
				prev = allowed
			}
		}
	}
}

func TestCanAccess_UnknownDepartmentDeterministic(t *testing.T) {
	// 不存在的部门也要确定性拒绝，而不是报错
	user := actorWith(AccessNormalUser, "Facilities")
	require.False(t, CanAccess(user, "No Such Department", ActionRead))
}

func TestScopeFilter(t *testing.T) {
	dept, restricted := ScopeFilter(actorWith(AccessSuperAdmin, "Facilities"))
	require.False(t, restricted)
	require.Empty(t, dept)

	dept, restricted = ScopeFilter(actorWith(AccessDepartmentAdmin, "Facilities"))
	require.True(t, restricted)
	require.Equal(t, "Facilities", dept)

	dept, restricted = ScopeFilter(actorWith(AccessNormalUser, "Facilities"))
	require.True(t, restricted)
	require.Equal(t, "Facilities", dept)
}

func TestAuthorizeAndRoleGate(t *testing.T) {
	admin := actorWith(AccessDepartmentAdmin, "Facilities")
	admin.Role = RoleManager
	require.NoError(t, Authorize(admin, "Facilities", ActionWrite))
	require.NoError(t, RequireManagerial(admin))

	tech := actorWith(AccessDepartmentAdmin, "Facilities")
	tech.Role = RoleTechnician
	// 层级放行但角色门槛拒绝
	require.NoError(t, Authorize(tech, "Facilities", ActionWrite))
	require.ErrorIs(t, RequireManagerial(tech), ErrUnauthorized)

	user := actorWith(AccessNormalUser, "Facilities")
	require.ErrorIs(t, Authorize(user, "Facilities", ActionWrite), ErrUnauthorized)
}
