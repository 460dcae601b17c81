package broker

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"jobhealth/src/contracts"
	"jobhealth/src/provider"
)

var target = contracts.Target{Org: "vllm", Pipeline: "ci", Branch: "main"}

func testSnapshot(gen uint64) *contracts.DashboardSnapshot {
	return &contracts.DashboardSnapshot{
		Target:      target,
		Generation:  gen,
		GeneratedAt: time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC),
		Jobs: []contracts.JobHealth{
			{Key: "unit", Name: "Unit", LastState: provider.JobFailed, Frequency: 2},
		},
		TotalBuilds: 2,
		Summary:     contracts.Summary{FailingRequired: 1},
	}
}

func receive(t *testing.T, ch <-chan *contracts.DashboardSnapshot) *contracts.DashboardSnapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for snapshot")
	}
	return nil
}

func TestSnapshots_PublishSubscribe(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx := context.Background()
	snaps, err := SubscribeSnapshots(ctx, b, "watch", nil)
	if err != nil {
		t.Fatalf("SubscribeSnapshots() error = %v", err)
	}

	want := testSnapshot(3)
	if err := NewSnapshotPublisher(b).PublishSnapshot(ctx, want); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}

	if diff := cmp.Diff(want, receive(t, snaps)); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshots_KeyedByTarget(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx := context.Background()
	raw, err := b.Subscribe(ctx, contracts.TopicSnapshots, "raw")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for gen := uint64(1); gen <= 3; gen++ {
		if err := NewSnapshotPublisher(b).PublishSnapshot(ctx, testSnapshot(gen)); err != nil {
			t.Fatalf("PublishSnapshot() error = %v", err)
		}
	}

	for want := int64(0); want < 3; want++ {
		msg := <-raw
		if msg.Key != "vllm/ci@main" {
			t.Errorf("Key = %q, want vllm/ci@main", msg.Key)
		}
		if msg.Offset != want {
			t.Errorf("Offset = %d, want %d", msg.Offset, want)
		}
	}
}

func TestSnapshots_EverySubscriberReceives(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx := context.Background()
	first, _ := SubscribeSnapshots(ctx, b, "first", nil)
	second, _ := SubscribeSnapshots(ctx, b, "second", nil)

	if err := NewSnapshotPublisher(b).PublishSnapshot(ctx, testSnapshot(7)); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}

	for name, ch := range map[string]<-chan *contracts.DashboardSnapshot{"first": first, "second": second} {
		if got := receive(t, ch); got.Generation != 7 {
			t.Errorf("%s: generation = %d, want 7", name, got.Generation)
		}
	}
}

func TestSnapshots_SkipsUndecodableMessages(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx := context.Background()
	snaps, _ := SubscribeSnapshots(ctx, b, "watch", nil)

	if err := b.Publish(ctx, contracts.TopicSnapshots, "vllm/ci@main", []byte("{not json")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := NewSnapshotPublisher(b).PublishSnapshot(ctx, testSnapshot(2)); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}

	if got := receive(t, snaps); got.Generation != 2 {
		t.Errorf("generation = %d, want 2", got.Generation)
	}
}

func TestSnapshots_OtherTopicsIgnored(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx := context.Background()
	snaps, _ := SubscribeSnapshots(ctx, b, "watch", nil)

	if err := b.Publish(ctx, "jobhealth.other", "k", []byte(`{"generation":9}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case snap := <-snaps:
		t.Errorf("received snapshot %d from another topic", snap.Generation)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSnapshots_CancelClosesChannel(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	snaps, _ := SubscribeSnapshots(ctx, b, "watch", nil)
	cancel()

	select {
	case _, ok := <-snaps:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for channel close")
	}
}

func TestInMemoryBroker_CloseReleasesSubscribers(t *testing.T) {
	b := NewInMemoryBroker()

	// Never cancelled: only Close can end these subscriptions.
	snaps, _ := SubscribeSnapshots(context.Background(), b, "watch", nil)
	raw, _ := b.Subscribe(context.Background(), contracts.TopicSnapshots, "raw")

	closed := make(chan struct{})
	go func() {
		b.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close() did not return")
	}

	if _, ok := <-raw; ok {
		t.Error("raw channel still open after Close")
	}
	select {
	case _, ok := <-snaps:
		if ok {
			t.Error("snapshot channel still open after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for snapshot channel close")
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	b := NewInMemoryBroker()
	b.Close()

	ctx := context.Background()
	if err := NewSnapshotPublisher(b).PublishSnapshot(ctx, testSnapshot(1)); err == nil {
		t.Error("expected error publishing to closed broker")
	}
	if _, err := SubscribeSnapshots(ctx, b, "watch", nil); err == nil {
		t.Error("expected error subscribing to closed broker")
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDecodeSnapshot_Invalid(t *testing.T) {
	if _, err := DecodeSnapshot(Message{Value: []byte("{not json")}); err == nil {
		t.Error("expected decode error")
	}
}
