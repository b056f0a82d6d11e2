package notifications

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/pagination"
)

type stubNotificationsRepo struct {
	rows []models.Notification
}

func (s *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubNotificationsRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	s.rows = append(s.rows, *n)
	return nil
}

func (s *stubNotificationsRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	var matched []models.Notification
	for _, row := range s.rows {
		if row.UserID != params.UserID {
			continue
		}
		if params.UnreadOnly && row.ReadAt != nil {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	normalized := pagination.NormalizeLimit(params.Limit)
	if len(matched) > normalized {
		next := matched[normalized]
		return matched[:normalized], &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return matched, nil, nil
}

func (s *stubNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	for i := range s.rows {
		if s.rows[i].ID != notificationID || s.rows[i].UserID != userID {
			continue
		}
		if s.rows[i].ReadAt != nil {
			return notificationMarkResult{Found: true}, nil
		}
		s.rows[i].ReadAt = &now
		return notificationMarkResult{Found: true, Updated: true}, nil
	}
	return notificationMarkResult{}, nil
}

func (s *stubNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	for i := range s.rows {
		if s.rows[i].UserID != userID || s.rows[i].ReadAt != nil {
			continue
		}
		if s.rows[i].CreatedAt.After(now) {
			continue
		}
		s.rows[i].ReadAt = &now
		count++
	}
	return count, nil
}

func (s *stubNotificationsRepo) DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	kept := s.rows[:0]
	var deleted int64
	for _, row := range s.rows {
		if row.ReadAt != nil && row.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return deleted, nil
}

func seedStubNotification(repo *stubNotificationsRepo, userID uuid.UUID, createdAt time.Time, read bool) models.Notification {
	row := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeNewOrder,
		Title:     "Nuevo pedido",
		Message:   "Tienes un pedido nuevo",
		CreatedAt: createdAt,
	}
	if read {
		readAt := createdAt.Add(time.Minute)
		row.ReadAt = &readAt
	}
	repo.rows = append(repo.rows, row)
	return row
}

func TestListScopesToUserAndPaginates(t *testing.T) {
	repo := &stubNotificationsRepo{}
	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 30; i++ {
		seedStubNotification(repo, userID, base.Add(time.Duration(i)*time.Minute), false)
	}
	seedStubNotification(repo, uuid.New(), base, false)

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{UserID: userID})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.Items) != pagination.DefaultLimit {
		t.Fatalf("expected %d items got %d", pagination.DefaultLimit, len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatalf("expected cursor for next page")
	}
	for _, item := range result.Items {
		if item.UserID != userID {
			t.Fatalf("foreign notification leaked: %s", item.ID)
		}
	}
}

func TestListUnreadOnlyFiltersReadRows(t *testing.T) {
	repo := &stubNotificationsRepo{}
	userID := uuid.New()
	now := time.Now().UTC()
	seedStubNotification(repo, userID, now.Add(-2*time.Minute), true)
	unread := seedStubNotification(repo, userID, now.Add(-time.Minute), false)

	svc, _ := NewService(repo)
	result, err := svc.List(context.Background(), ListParams{UserID: userID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != unread.ID {
		t.Fatalf("unexpected items %+v", result.Items)
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	svc, _ := NewService(&stubNotificationsRepo{})
	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "not-base64!!"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := &stubNotificationsRepo{}
	userID := uuid.New()
	row := seedStubNotification(repo, userID, time.Now().UTC(), false)

	svc, _ := NewService(repo)
	if err := svc.MarkRead(context.Background(), userID, row.ID); err != nil {
		t.Fatalf("first mark failed: %v", err)
	}
	if err := svc.MarkRead(context.Background(), userID, row.ID); err != nil {
		t.Fatalf("second mark must succeed: %v", err)
	}
	if repo.rows[0].ReadAt == nil {
		t.Fatalf("notification not marked read")
	}
}

func TestMarkReadForeignNotificationNotFound(t *testing.T) {
	repo := &stubNotificationsRepo{}
	row := seedStubNotification(repo, uuid.New(), time.Now().UTC(), false)

	svc, _ := NewService(repo)
	err := svc.MarkRead(context.Background(), uuid.New(), row.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMarkAllReadLeavesLaterRowsUnread(t *testing.T) {
	repo := &stubNotificationsRepo{}
	userID := uuid.New()
	now := time.Now().UTC()
	seedStubNotification(repo, userID, now.Add(-time.Minute), false)
	seedStubNotification(repo, userID, now.Add(-time.Second), false)
	late := seedStubNotification(repo, userID, now.Add(time.Hour), false)

	svc, _ := NewService(repo)
	count, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows marked, got %d", count)
	}
	for _, row := range repo.rows {
		if row.ID == late.ID && row.ReadAt != nil {
			t.Fatalf("row created after the call must stay unread")
		}
	}
}
