package grpc

import (
	"slices"

	"github.com/dmitrijs2005/tokenkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Rule says who may call a method. A public rule skips token checks, an empty
// Roles list admits any authenticated caller, otherwise the caller needs at
// least one of Roles.
type Rule struct {
	Public bool
	Roles  []models.Role
}

// Policy maps full method names to rules. Methods without a rule are denied.
type Policy map[string]Rule

func DefaultPolicy() Policy {
	public := Rule{Public: true}
	authenticated := Rule{}

	return Policy{
		authv1.MethodPing:                    public,
		authv1.MethodRegister:                public,
		authv1.MethodCheckUsername:           public,
		authv1.MethodLogin:                   public,
		authv1.MethodRefresh:                 public,
		healthpb.Health_Check_FullMethodName: public,

		authv1.MethodLogout:         authenticated,
		authv1.MethodWhoAmI:         authenticated,
		authv1.MethodChangePassword: authenticated,

		authv1.MethodAssignRole:     {Roles: []models.Role{models.RoleAdmin, models.RoleSuperAdmin}},
		authv1.MethodDeactivateUser: {Roles: []models.Role{models.RoleSuperAdmin}},
	}
}

func (r Rule) allows(role models.Role) bool {
	return len(r.Roles) == 0 || slices.Contains(r.Roles, role)
}
