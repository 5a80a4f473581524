// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary: every user, role and session belongs to exactly one tenant.
type Tenant struct {
	ID        uuid.UUID // Primary identifier, referenced by users and roles.
	Name      string    // Human readable workspace name.
	Slug      string    // Unique URL-safe identifier derived from Name.
	IsActive  bool      // Inactive tenants keep their data but are not served.
	CreatedAt time.Time // Timestamp of when the tenant was provisioned.
	UpdatedAt time.Time // Timestamp of the last modification.
}
