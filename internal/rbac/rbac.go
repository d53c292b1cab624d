package rbac

type Role string
type Action string

const (
	RoleAnonymous  Role = "anonymous"
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

const (
	ActionRead     Action = "read"
	ActionComment  Action = "comment"
	ActionLike     Action = "like"
	ActionWrite    Action = "write"
	ActionUpload   Action = "upload"
	ActionMaintain Action = "maintain"
	// ActionManageAdmins covers creating further admin accounts.
	ActionManageAdmins Action = "manage_admins"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return action != ActionManageAdmins && action != ActionLike
	case RoleStudent:
		return action == ActionRead || action == ActionComment || action == ActionLike
	case RoleAnonymous:
		return action == ActionRead
	default:
		return false
	}
}

// Normalize maps a token role to a Role. Unknown roles get student rights.
func Normalize(role string, isSuper bool) Role {
	switch Role(role) {
	case RoleAdmin:
		if isSuper {
			return RoleSuperAdmin
		}
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	case "":
		return RoleAnonymous
	default:
		return RoleStudent
	}
}
