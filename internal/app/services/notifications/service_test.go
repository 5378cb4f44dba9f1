package notifications

import (
	"context"
	"testing"

	"github.com/pawmate/pawmate/internal/app/domain/notification"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage/memory"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), logger.NewNop())
	alice := user.User{ID: "alice"}
	bob := user.User{ID: "bob"}

	svc.Notify(ctx, notification.Notification{UserID: alice.ID, Kind: notification.KindBooking, Title: "New booking"})
	svc.Notify(ctx, notification.Notification{UserID: alice.ID, Kind: notification.KindLike, Title: "Bob liked your post"})
	svc.Notify(ctx, notification.Notification{UserID: "", Title: "dropped"})

	count, err := svc.UnreadCount(ctx, alice)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	items, err := svc.List(ctx, alice, notification.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Kind != notification.KindLike {
		t.Fatalf("expected newest first, got %+v", items)
	}

	if _, err := svc.MarkRead(ctx, bob, items[0].ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign notification, got %v", err)
	}
	read, err := svc.MarkRead(ctx, alice, items[0].ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.Status != notification.StatusRead || read.ReadAt == nil {
		t.Fatalf("notification not marked read: %+v", read)
	}

	unread, _ := svc.List(ctx, alice, notification.Filter{UnreadOnly: true})
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread, got %d", len(unread))
	}

	marked, err := svc.MarkAllRead(ctx, alice)
	if err != nil || marked != 1 {
		t.Fatalf("mark all read: %d, %v", marked, err)
	}
	if err := svc.Delete(ctx, alice, items[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, _ := svc.List(ctx, alice, notification.Filter{})
	if len(left) != 1 {
		t.Fatalf("expected 1 notification after delete, got %d", len(left))
	}
}
