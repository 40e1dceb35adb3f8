package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/marcelojr/cineclube/internal/app/hub"
	"github.com/marcelojr/cineclube/internal/domain"
	"github.com/marcelojr/cineclube/internal/platform/ids"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memoryNotifications struct {
	mu        sync.Mutex
	records   []domain.Notification
	createErr error
}

func (m *memoryNotifications) Create(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, n)
	return nil
}

func (m *memoryNotifications) ListByUser(_ context.Context, userID domain.UserID, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].UserID != userID {
			continue
		}
		out = append(out, m.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryNotifications) MarkRead(_ context.Context, id domain.NotificationID, userID domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id && m.records[i].UserID == userID {
			m.records[i].Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type recordingPusher struct {
	mu        sync.Mutex
	delivered bool
	frames    []hub.Frame
	users     []domain.UserID
}

func (p *recordingPusher) Push(user domain.UserID, frame hub.Frame) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
	p.users = append(p.users, user)
	return p.delivered
}

func newTestDispatcher(records *memoryNotifications, pusher Pusher) *Dispatcher {
	return NewDispatcher(
		records,
		pusher,
		fixedClock{now: time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC)},
		ids.NewGenerator(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestDispatchPersistsThenPushes(t *testing.T) {
	records := &memoryNotifications{}
	pusher := &recordingPusher{delivered: true}
	d := newTestDispatcher(records, pusher)

	notification, err := d.Dispatch(context.Background(), "user-1", domain.NotificationComment, "review-42")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if notification.ID == "" {
		t.Fatal("dispatched notification has no id")
	}

	if len(records.records) != 1 {
		t.Fatalf("expected one durable record, got %d", len(records.records))
	}
	if len(pusher.frames) != 1 || pusher.frames[0].Type != hub.FrameNotification {
		t.Fatalf("wrong push: %+v", pusher.frames)
	}
	if pusher.users[0] != "user-1" {
		t.Fatalf("pushed to wrong user: %s", pusher.users[0])
	}
	pushed, ok := pusher.frames[0].Data.(domain.Notification)
	if !ok || pushed.ID != notification.ID {
		t.Fatalf("push payload is not the stored record: %+v", pusher.frames[0].Data)
	}
}

func TestDispatchSucceedsWhenUserOffline(t *testing.T) {
	records := &memoryNotifications{}
	pusher := &recordingPusher{delivered: false}
	d := newTestDispatcher(records, pusher)

	if _, err := d.Dispatch(context.Background(), "user-1", domain.NotificationLike, ""); err != nil {
		t.Fatalf("offline dispatch must not fail: %v", err)
	}
	if len(records.records) != 1 {
		t.Fatalf("offline dispatch must still persist, got %d records", len(records.records))
	}
}

func TestDispatchRejectsInvalidEvent(t *testing.T) {
	d := newTestDispatcher(&memoryNotifications{}, &recordingPusher{})

	if _, err := d.Dispatch(context.Background(), "", domain.NotificationLike, ""); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("missing user: expected ErrInvalidEvent, got %v", err)
	}
	if _, err := d.Dispatch(context.Background(), "user-1", "", ""); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("missing type: expected ErrInvalidEvent, got %v", err)
	}
}

func TestDispatchSkipsPushOnStorageFailure(t *testing.T) {
	storageErr := errors.New("database down")
	records := &memoryNotifications{createErr: storageErr}
	pusher := &recordingPusher{delivered: true}
	d := newTestDispatcher(records, pusher)

	if _, err := d.Dispatch(context.Background(), "user-1", domain.NotificationVote, ""); !errors.Is(err, storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(pusher.frames) != 0 {
		t.Fatal("push happened without a durable record")
	}
}

func TestMarkReadValidatesInput(t *testing.T) {
	records := &memoryNotifications{}
	d := newTestDispatcher(records, &recordingPusher{delivered: true})

	notification, err := d.Dispatch(context.Background(), "user-1", domain.NotificationComment, "")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if err := d.MarkRead(context.Background(), "", "user-1"); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("missing id: expected ErrInvalidEvent, got %v", err)
	}
	if err := d.MarkRead(context.Background(), notification.ID, "someone-else"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("wrong user: expected ErrNotFound, got %v", err)
	}
	if err := d.MarkRead(context.Background(), notification.ID, "user-1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if !records.records[0].Read {
		t.Fatal("record not flagged as read")
	}
}

func TestListForUserNewestFirst(t *testing.T) {
	records := &memoryNotifications{}
	d := newTestDispatcher(records, &recordingPusher{})

	first, _ := d.Dispatch(context.Background(), "user-1", domain.NotificationComment, "a")
	second, _ := d.Dispatch(context.Background(), "user-1", domain.NotificationLike, "b")
	if _, err := d.Dispatch(context.Background(), "user-2", domain.NotificationLike, "c"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	list, err := d.ListForUser(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("not newest-first: %+v", list)
	}
}
