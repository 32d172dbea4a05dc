package privilege

import (
	"context"
	"testing"

	"github.com/generalpiston/qpg/internal/pgreader"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	pgreader.PgReader
	user       string
	roles      []pgreader.RoleRow
	violations []string
}

func (f *fakeReader) CurrentUser(ctx context.Context) (string, error) { return f.user, nil }
func (f *fakeReader) InheritedRoles(ctx context.Context, u string) ([]pgreader.RoleRow, error) {
	return f.roles, nil
}
func (f *fakeReader) PrivilegeViolations(ctx context.Context, roles []string, allowExecute bool) ([]string, error) {
	return f.violations, nil
}

func TestCheck_PassesWhenNoViolations(t *testing.T) {
	r := &fakeReader{user: "readonly_app", roles: []pgreader.RoleRow{{RoleName: "readonly_app"}}}
	report, err := Check(context.Background(), r, false)
	require.NoError(t, err)
	require.True(t, report.Pass)
}

func TestCheck_FailsWhenViolationsPresent(t *testing.T) {
	r := &fakeReader{user: "app", violations: []string{"table:public.orders:insert"}}
	report, err := Check(context.Background(), r, false)
	require.NoError(t, err)
	require.False(t, report.Pass)
	require.Len(t, report.Violations, 1)
}
