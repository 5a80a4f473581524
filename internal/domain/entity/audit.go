package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names a security relevant event.
type AuditAction string

const (
	AuditActionRegister         AuditAction = "register"
	AuditActionLoginSuccess     AuditAction = "login_success"
	AuditActionLoginFailed      AuditAction = "login_failed"
	AuditActionRefresh          AuditAction = "token_refresh"
	AuditActionLogout           AuditAction = "logout"
	AuditActionLogoutAll        AuditAction = "logout_all"
	AuditActionOAuthLogin       AuditAction = "oauth_login"
	AuditActionPermissionDenied AuditAction = "permission_denied"
	AuditActionSuperuserBypass  AuditAction = "superuser_bypass"
	AuditActionSessionsRevoked  AuditAction = "sessions_revoked"
)

// ClientMeta is the request context recorded with sessions and audit events.
type ClientMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// AuditEvent is a single audit log entry. TenantID and UserID are nil when the actor is unknown.
type AuditEvent struct {
	TenantID     *uuid.UUID
	UserID       *uuid.UUID
	Action       AuditAction
	ResourceType string
	ResourceID   string
	Client       ClientMeta
	Metadata     map[string]any
	OccurredAt   time.Time
}

// NewUserAuditEvent builds an event attributed to the given user.
func NewUserAuditEvent(action AuditAction, user *User, client ClientMeta) AuditEvent {
	event := AuditEvent{
		Action:       action,
		ResourceType: "user",
		Client:       client,
		OccurredAt:   time.Now().UTC(),
	}
	if user != nil {
		tenantID, userID := user.TenantID, user.ID
		event.TenantID = &tenantID
		event.UserID = &userID
		event.ResourceID = user.ID.String()
	}

	return event
}
