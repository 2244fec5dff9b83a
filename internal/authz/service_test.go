package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return svc
}

func TestIntakeCallerOnlyReachesSync(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapCallers([]string{"product-a"}, nil); err != nil {
		t.Fatalf("bootstrap callers failed: %v", err)
	}

	allow, err := svc.EnforceCaller("product-a", "/api/v1/sync/unified-data", "post")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("intake caller should reach sync")
	}

	for _, tc := range []struct{ path, method string }{
		{"/api/v1/settings/commission", "PUT"},
		{"/api/v1/commissions/process-status", "POST"},
		{"/api/v1/payments/:id", "GET"},
		{"/api/v1/sync/unified-data", "GET"},
	} {
		allow, err := svc.EnforceCaller("product-a", tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.method, tc.path, err)
		}
		if allow {
			t.Fatalf("intake caller must not reach %s %s", tc.method, tc.path)
		}
	}
}

func TestAdminCallerReachesEveryRoute(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapCallers(nil, []string{"backoffice"}); err != nil {
		t.Fatalf("bootstrap callers failed: %v", err)
	}
	for _, tc := range []struct{ path, method string }{
		{"/api/v1/sync/unified-data", "POST"},
		{"/api/v1/settings/commission", "PUT"},
		{"/api/v1/affiliates/:id/balance", "GET"},
		{"/api/v1/jobs/reconcile", "POST"},
	} {
		allow, err := svc.EnforceCaller("backoffice", tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.method, tc.path, err)
		}
		if !allow {
			t.Fatalf("admin caller should reach %s %s", tc.method, tc.path)
		}
	}
}

func TestUnknownCallerIsDenied(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	allow, err := svc.EnforceCaller("stranger", "/api/v1/sync/unified-data", "POST")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if allow {
		t.Fatalf("caller without roles must be denied")
	}
	if _, err := svc.EnforceCaller(" ", "/api/v1/sync/unified-data", "POST"); err == nil {
		t.Fatalf("blank caller should be rejected")
	}
}

func TestBootstrapCallersOverridesRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapCallers(nil, []string{"ops"}); err != nil {
		t.Fatalf("first bootstrap failed: %v", err)
	}
	if err := svc.BootstrapCallers([]string{"ops"}, nil); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	roles, err := svc.GetCallerRoles("ops")
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:intake" {
		t.Fatalf("roles want [role:intake], got=%v", roles)
	}

	allow, err := svc.EnforceCaller("ops", "/api/v1/settings/commission", "PUT")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if allow {
		t.Fatalf("demoted caller must lose admin routes")
	}

	callers, err := svc.ListCallers()
	if err != nil {
		t.Fatalf("list callers failed: %v", err)
	}
	if len(callers) != 1 || callers[0] != "ops" {
		t.Fatalf("callers want [ops], got=%v", callers)
	}
}

func TestBootstrapCallersRevokesRemovedCallers(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapCallers([]string{"old-product"}, []string{"backoffice"}); err != nil {
		t.Fatalf("first bootstrap failed: %v", err)
	}
	if err := svc.BootstrapCallers(nil, []string{"backoffice"}); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	allow, err := svc.EnforceCaller("old-product", "/api/v1/sync/unified-data", "POST")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if allow {
		t.Fatalf("removed caller must lose access")
	}
	callers, err := svc.ListCallers()
	if err != nil {
		t.Fatalf("list callers failed: %v", err)
	}
	if len(callers) != 1 || callers[0] != "backoffice" {
		t.Fatalf("callers want [backoffice], got=%v", callers)
	}
}

func TestBootstrapBuiltinRolesIsIdempotent(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	policies, err := svc.GetRolePolicies(RoleIntake)
	if err != nil {
		t.Fatalf("get policies failed: %v", err)
	}
	if len(policies) != 1 || policies[0].Object != "/sync/unified-data" || policies[0].Action != "POST" {
		t.Fatalf("unexpected intake policies: %+v", policies)
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := map[string]string{
		"":                     "/",
		"/api/v1":              "/",
		"/api/v1/payments/:id": "/payments/:id",
		"sync/unified-data":    "/sync/unified-data",
		" /healthz ":           "/healthz",
	}
	for input, want := range cases {
		if got := NormalizeObject(input); got != want {
			t.Fatalf("NormalizeObject(%q) want %q got %q", input, want, got)
		}
	}
}
