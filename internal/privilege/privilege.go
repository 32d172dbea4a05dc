// Package privilege implements the read-only enforcement check: walking the
// inherited role set and enumerating any grant beyond SELECT/USAGE.
package privilege

import (
	"context"

	"github.com/generalpiston/qpg/internal/pgreader"
)

// Report is the outcome of one privilege check run.
type Report struct {
	CurrentUser  string
	Roles        []string
	Violations   []string
	Pass         bool
	AllowExecute bool
}

// Check builds the inherited-role set via a recursive walk from
// current_user through pg_auth_members, then enumerates any privilege
// beyond minimum read. The report passes iff the violations list is empty.
func Check(ctx context.Context, reader pgreader.PgReader, allowExecute bool) (*Report, error) {
	currentUser, err := reader.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	roleRows, err := reader.InheritedRoles(ctx, currentUser)
	if err != nil {
		return nil, err
	}
	roles := make([]string, len(roleRows))
	for i, r := range roleRows {
		roles[i] = r.RoleName
	}

	violations, err := reader.PrivilegeViolations(ctx, roles, allowExecute)
	if err != nil {
		return nil, err
	}

	return &Report{
		CurrentUser:  currentUser,
		Roles:        roles,
		Violations:   violations,
		Pass:         len(violations) == 0,
		AllowExecute: allowExecute,
	}, nil
}
