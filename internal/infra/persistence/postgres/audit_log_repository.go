package postgres

import (
	"context"
	"encoding/json"
	"time"

	"tenantauth/internal/domain/entity"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/repository"
	"tenantauth/internal/infra/persistence/model"
	"tenantauth/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository is the constructor for auditLogRepository.
func NewAuditLogRepository(db *gorm.DB) repository.AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (repo *auditLogRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	auditM, err := fromAuditEventDomain(event)
	if err != nil {
		return err
	}

	if err := repo.db.WithContext(ctx).Create(auditM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to write audit log")
	}

	return nil
}

func fromAuditEventDomain(event *entity.AuditEvent) (*model.AuditLogModel, error) {
	var metadata datatypes.JSON
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode audit metadata")
		}
		metadata = datatypes.JSON(raw)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return &model.AuditLogModel{
		ID:           uuid.New(),
		TenantID:     event.TenantID,
		UserID:       event.UserID,
		Action:       string(event.Action),
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		IPAddress:    util.TruncateString(event.Client.IPAddress, entity.MaxIPAddressLength),
		UserAgent:    util.TruncateString(event.Client.UserAgent, entity.MaxUserAgentLength),
		RequestID:    event.Client.RequestID,
		Metadata:     metadata,
		CreatedAt:    occurredAt,
	}, nil
}
