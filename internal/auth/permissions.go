package auth

import (
	"strings"

	"travelbackend/internal/domain"
)

// Permission is a closed capability identifier. Unknown strings from the
// authorization source are dropped at actor construction, so a typo denies
// nothing silently at call sites: every call site references a constant.
type Permission string

const (
	PermTripCreate       Permission = "trip:create"
	PermTripEdit         Permission = "trip:edit"
	PermTripSubmit       Permission = "trip:submit"
	PermTripApprove      Permission = "trip:approve"
	PermTripPublish      Permission = "trip:publish"
	PermTripArchive      Permission = "trip:archive"
	PermTripViewInternal Permission = "trip:view:internal"
	PermBookingApprove   Permission = "booking:approve"
	PermBookingReject    Permission = "booking:reject"
	PermBookingComplete  Permission = "booking:complete"
	PermBookingView      Permission = "booking:view"
	PermPaymentRecord    Permission = "payment:record"
	PermPaymentRefund    Permission = "payment:refund"
	PermPaymentView      Permission = "payment:view"
)

var known = map[Permission]struct{}{
	PermTripCreate:       {},
	PermTripEdit:         {},
	PermTripSubmit:       {},
	PermTripApprove:      {},
	PermTripPublish:      {},
	PermTripArchive:      {},
	PermTripViewInternal: {},
	PermBookingApprove:   {},
	PermBookingReject:    {},
	PermBookingComplete:  {},
	PermBookingView:      {},
	PermPaymentRecord:    {},
	PermPaymentRefund:    {},
	PermPaymentView:      {},
}

// Known reports whether p is part of the closed permission set.
func Known(p Permission) bool {
	_, ok := known[p]
	return ok
}

// Actor is a resolved request-scoped identity: user id, role, and the
// capability set granted by the authorization source. It is passed explicitly
// to every mutating operation; nothing here lives in package state.
type Actor struct {
	UserID int64
	Role   string

	perms     map[Permission]struct{}
	wildcards map[string]struct{} // "trip" for trip:*, "" for *
}

// NewActor builds the capability set from the raw permission strings the
// authorization source returned. Wildcard grants ("trip:*", "*") are kept as
// prefixes; unknown concrete strings are ignored.
func NewActor(userID int64, role string, raw []string) Actor {
	a := Actor{
		UserID:    userID,
		Role:      role,
		perms:     make(map[Permission]struct{}, len(raw)),
		wildcards: map[string]struct{}{},
	}
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if s == "*" {
			a.wildcards[""] = struct{}{}
			continue
		}
		if strings.HasSuffix(s, ":*") {
			a.wildcards[strings.TrimSuffix(s, ":*")] = struct{}{}
			continue
		}
		p := Permission(s)
		if Known(p) {
			a.perms[p] = struct{}{}
		}
	}
	return a
}

// HasPermission is the authorization gate: a pure check of the actor's
// capability set against the required permission.
func (a Actor) HasPermission(p Permission) bool {
	if _, ok := a.wildcards[""]; ok {
		return true
	}
	if _, ok := a.perms[p]; ok {
		return true
	}
	if i := strings.Index(string(p), ":"); i > 0 {
		if _, ok := a.wildcards[string(p)[:i]]; ok {
			return true
		}
	}
	return false
}

// Require short-circuits with ForbiddenError before any precondition or side
// effect. Permission failures must never leak business state.
func Require(a Actor, p Permission) error {
	if !a.HasPermission(p) {
		return domain.ForbiddenError{Permission: string(p)}
	}
	return nil
}

// Permissions returns the concrete grants, mostly for diagnostics.
func (a Actor) Permissions() []string {
	out := make([]string, 0, len(a.perms)+len(a.wildcards))
	for p := range a.perms {
		out = append(out, string(p))
	}
	for w := range a.wildcards {
		if w == "" {
			out = append(out, "*")
		} else {
			out = append(out, w+":*")
		}
	}
	return out
}
