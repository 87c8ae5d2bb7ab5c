package auth

import (
	"testing"

	"travelbackend/internal/domain"
)

func TestHasPermissionConcreteGrant(t *testing.T) {
	a := NewActor(1, "manager", []string{"booking:approve", "booking:view"})

	if !a.HasPermission(PermBookingApprove) {
		t.Fatal("expected booking:approve to be granted")
	}
	if a.HasPermission(PermPaymentRefund) {
		t.Fatal("payment:refund must not be granted")
	}
}

func TestHasPermissionWildcards(t *testing.T) {
	trips := NewActor(2, "reviewer", []string{"trip:*"})
	if !trips.HasPermission(PermTripApprove) {
		t.Fatal("trip:* must cover trip:approve")
	}
	if !trips.HasPermission(PermTripViewInternal) {
		t.Fatal("trip:* must cover trip:view:internal")
	}
	if trips.HasPermission(PermBookingApprove) {
		t.Fatal("trip:* must not cover booking:approve")
	}

	admin := NewActor(3, "admin", []string{"*"})
	for p := range known {
		if !admin.HasPermission(p) {
			t.Fatalf("* must cover %s", p)
		}
	}
}

func TestNewActorDropsUnknownPermissions(t *testing.T) {
	a := NewActor(4, "user", []string{"booking:teleport", "payment:view", "  ", ""})

	if a.HasPermission(Permission("booking:teleport")) {
		t.Fatal("unknown permission must not be granted")
	}
	if !a.HasPermission(PermPaymentView) {
		t.Fatal("known permission alongside junk must survive")
	}
}

func TestRequireReturnsForbidden(t *testing.T) {
	a := NewActor(5, "user", nil)

	err := Require(a, PermBookingApprove)
	if err == nil {
		t.Fatal("expected error for missing permission")
	}
	if !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestRoleGrantsAdminHasEverything(t *testing.T) {
	a := NewActor(6, "admin", GrantsFor("admin"))
	if !a.HasPermission(PermPaymentRefund) || !a.HasPermission(PermTripPublish) {
		t.Fatal("admin role must grant all permissions")
	}

	u := NewActor(7, "user", GrantsFor("user"))
	if u.HasPermission(PermBookingApprove) {
		t.Fatal("user role must not approve bookings")
	}
}
