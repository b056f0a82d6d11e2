package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/payloads"
)

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SessionRevoker drops a user's realtime sessions on admin request. Access
// tokens already issued stay valid until expiry; the short access TTL bounds
// the window, and the published event disconnects open sockets immediately.
type SessionRevoker struct {
	users  userLookup
	tx     txRunner
	outbox outboxPublisher
}

// NewSessionRevoker wires the session revocation dependencies.
func NewSessionRevoker(users userLookup, tx txRunner, publisher outboxPublisher) (*SessionRevoker, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &SessionRevoker{users: users, tx: tx, outbox: publisher}, nil
}

// Revoke queues a session_revoked event for the target user.
func (s *SessionRevoker) Revoke(ctx context.Context, input RevokeSessionsInput) error {
	if input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.TargetUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "target user id required")
	}

	if _, err := s.users.FindByID(ctx, input.TargetUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	now := time.Now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionRevoked,
			AggregateType: enums.AggregateSession,
			AggregateID:   input.TargetUserID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.SessionRevokedEvent{
				UserID:    input.TargetUserID,
				RevokedBy: input.Actor.UserID,
				RevokedAt: now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue session revocation")
	}
	return nil
}
