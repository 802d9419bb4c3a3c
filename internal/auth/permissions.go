package auth

import "github.com/yenshow/ba-frontend/internal/session"

// Permission is a named capability.
type Permission string

// Permission constants.
const (
	PermDeviceRead      Permission = "device:read"
	PermModbusRead      Permission = "modbus:read"
	PermModbusWrite     Permission = "modbus:write"
	PermDeviceConfigure Permission = "device:configure"
	PermStreamControl   Permission = "stream:control"
	PermUserManage      Permission = "user:manage"
)

// rolePermissions is the single source of truth for what each role may
// do. Higher roles list every permission of the lower ones.
var rolePermissions = map[session.Role][]Permission{
	session.RoleViewer: {
		PermDeviceRead,
		PermModbusRead,
	},
	session.RoleOperator: {
		PermDeviceRead,
		PermModbusRead,
		PermModbusWrite,
		PermStreamControl,
	},
	session.RoleAdmin: {
		PermDeviceRead,
		PermModbusRead,
		PermModbusWrite,
		PermStreamControl,
		PermDeviceConfigure,
		PermUserManage,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role session.Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsFor returns a copy of role's permissions.
func PermissionsFor(role session.Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
