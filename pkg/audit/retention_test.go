package audit

import (
	"context"
	"testing"
	"time"
)

func TestNewRetentionWorker(t *testing.T) {
	worker := NewRetentionWorker(nil, 30, nil)

	if worker == nil {
		t.Fatal("expected non-nil worker")
	}

	expectedRetention := 30 * 24 // hours
	actualHours := int(worker.retention.Hours())
	if actualHours != expectedRetention {
		t.Errorf("expected retention %d hours, got %d", expectedRetention, actualHours)
	}

	expectedInterval := 24 // hours
	actualIntervalHours := int(worker.interval.Hours())
	if actualIntervalHours != expectedInterval {
		t.Errorf("expected interval %d hours, got %d", expectedInterval, actualIntervalHours)
	}
}

func TestRetentionWorker_DisabledReturnsImmediately(t *testing.T) {
	worker := NewRetentionWorker(nil, 0, nil)

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker did not return")
	}
}

func TestRetentionWorker_Cleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := &RequestEventRecord{Actor: "alice@example.com", Action: "create", CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	fresh := &RequestEventRecord{Actor: "alice@example.com", Action: "create"}
	if err := store.Append(ctx, old); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, fresh); err != nil {
		t.Fatalf("append: %v", err)
	}

	NewRetentionWorker(store, 30, nil).cleanup(ctx)

	if got, _ := store.GetByID(ctx, old.ID); got != nil {
		t.Error("expected old event to be deleted")
	}
	if got, _ := store.GetByID(ctx, fresh.ID); got == nil {
		t.Error("expected fresh event to be kept")
	}
}
