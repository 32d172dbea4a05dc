package introspect

import (
	"context"
	"errors"
	"testing"

	"github.com/generalpiston/qpg/internal/pgreader"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	relations    []pgreader.RelationRow
	columns      []pgreader.ColumnRow
	dependencies []pgreader.DependencyRow
	functionsErr error
}

func (f *fakeReader) Schemas(ctx context.Context) ([]pgreader.SchemaRow, error) { return nil, nil }
func (f *fakeReader) Relations(ctx context.Context) ([]pgreader.RelationRow, error) {
	return f.relations, nil
}
func (f *fakeReader) Extensions(ctx context.Context) ([]pgreader.ExtensionRow, error) {
	return nil, nil
}
func (f *fakeReader) Functions(ctx context.Context) ([]pgreader.FunctionRow, error) {
	if f.functionsErr != nil {
		return nil, f.functionsErr
	}
	return nil, nil
}
func (f *fakeReader) Columns(ctx context.Context) ([]pgreader.ColumnRow, error) { return f.columns, nil }
func (f *fakeReader) Constraints(ctx context.Context) ([]pgreader.ConstraintRow, error) {
	return nil, nil
}
func (f *fakeReader) Indexes(ctx context.Context) ([]pgreader.IndexRow, error) { return nil, nil }
func (f *fakeReader) Dependencies(ctx context.Context) ([]pgreader.DependencyRow, error) {
	return f.dependencies, nil
}
func (f *fakeReader) InheritedRoles(ctx context.Context, u string) ([]pgreader.RoleRow, error) {
	return nil, nil
}
func (f *fakeReader) CurrentUser(ctx context.Context) (string, error)   { return "tester", nil }
func (f *fakeReader) PrivilegeViolations(ctx context.Context, roles []string, allowExecute bool) ([]string, error) {
	return nil, nil
}
func (f *fakeReader) Close() error { return nil }

func TestRun_FunctionsErrorBecomesWarningNotAbort(t *testing.T) {
	r := &fakeReader{functionsErr: errors.New("permission denied")}
	b := Run(context.Background(), r, false)
	require.Len(t, b.Warnings, 1)
	require.Contains(t, b.Warnings[0], "functions: permission denied")
}

func TestRun_SkipFunctionsOmitsSection(t *testing.T) {
	r := &fakeReader{functionsErr: errors.New("should not be called")}
	b := Run(context.Background(), r, true)
	require.Empty(t, b.Warnings)
	require.Nil(t, b.Functions)
}

func TestRun_DependenciesKeptOnlyWhenBothEndpointsResolved(t *testing.T) {
	r := &fakeReader{
		relations: []pgreader.RelationRow{{Schema: "public", Name: "orders"}},
		dependencies: []pgreader.DependencyRow{
			{Schema: "public", Name: "orders", DependsOnSchema: "public", DependsOnName: "orders_seq"},
			{Schema: "public", Name: "orders", DependsOnSchema: "public", DependsOnName: "orders"},
		},
	}
	b := Run(context.Background(), r, false)
	require.Len(t, b.Dependencies, 1)
}

func TestApplyFilters_IdentityWhenBothEmpty(t *testing.T) {
	b := &pgreader.Bundle{Relations: []pgreader.RelationRow{{Schema: "public", Name: "orders"}}}
	out := ApplyFilters(b, nil, nil)
	require.Same(t, b, out)
}

func TestApplyFilters_SkipPatternDropsRelationAndChildren(t *testing.T) {
	b := &pgreader.Bundle{
		Relations: []pgreader.RelationRow{
			{Schema: "public", Name: "orders"},
			{Schema: "public", Name: "audit_log"},
		},
		Columns: []pgreader.ColumnRow{
			{Schema: "public", Relation: "orders", Name: "id"},
			{Schema: "public", Relation: "audit_log", Name: "id"},
		},
	}
	out := ApplyFilters(b, nil, []string{"audit_*"})
	require.Len(t, out.Relations, 1)
	require.Equal(t, "orders", out.Relations[0].Name)
	require.Len(t, out.Columns, 1)
}

func TestApplyFilters_IncludeSchemasRestricts(t *testing.T) {
	b := &pgreader.Bundle{
		Relations: []pgreader.RelationRow{
			{Schema: "public", Name: "orders"},
			{Schema: "internal", Name: "secrets"},
		},
	}
	out := ApplyFilters(b, []string{"public"}, nil)
	require.Len(t, out.Relations, 1)
	require.Equal(t, "public", out.Relations[0].Schema)
}
