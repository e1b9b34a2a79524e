package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"attempt:start",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
	},
	"instructor": {
		"exam:create",
		"exam:view",
		"exam:enroll",
		"attempt:view-all",
		"stats:view",
	},
	"admin": {
		"*", // everything
	},
}
