package entity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Wildcard matches any resource or any action in a permission grant.
const Wildcard = "*"

// Permission is global reference data shared by all tenants.
type Permission struct {
	ID          uuid.UUID
	Resource    string // e.g. "users", or "*"
	Action      string // e.g. "read", or "*"
	Description string
}

// Name returns the canonical "resource:action" form.
func (p Permission) Name() string {
	return p.Resource + ":" + p.Action
}

// Grants reports whether this permission covers the requested resource and action.
func (p Permission) Grants(resource, action string) bool {
	resourceOK := p.Resource == resource || p.Resource == Wildcard
	actionOK := p.Action == action || p.Action == Wildcard

	return resourceOK && actionOK
}

// Role is a named, tenant-owned set of permissions.
type Role struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	IsDefault   bool
	Permissions []Permission
}

// Grants reports whether any permission of the role covers resource and action.
func (r *Role) Grants(resource, action string) bool {
	for _, p := range r.Permissions {
		if p.Grants(resource, action) {
			return true
		}
	}

	return false
}

// PermissionRequirement is a (resource, action) pair a caller must hold.
type PermissionRequirement struct {
	Resource string
	Action   string
}

// String returns the "resource:action" form used in logs and error details.
func (r PermissionRequirement) String() string {
	return r.Resource + ":" + r.Action
}

// ParsePermission parses "resource:action".
func ParsePermission(s string) (PermissionRequirement, error) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok || resource == "" || action == "" {
		return PermissionRequirement{}, errors.Errorf("invalid permission %q, want resource:action", s)
	}

	return PermissionRequirement{Resource: resource, Action: action}, nil
}

// MustParsePermission is ParsePermission for static route declarations.
func MustParsePermission(s string) PermissionRequirement {
	req, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}

	return req
}
