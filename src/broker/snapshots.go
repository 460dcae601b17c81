package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"jobhealth/src/contracts"
	"jobhealth/src/logger"
)

// SnapshotPublisher publishes dashboard snapshots to TopicSnapshots,
// keyed by target so all generations of a target share a partition.
type SnapshotPublisher struct {
	broker Broker
}

// NewSnapshotPublisher wraps a broker.
func NewSnapshotPublisher(b Broker) *SnapshotPublisher {
	return &SnapshotPublisher{broker: b}
}

// PublishSnapshot encodes snap as JSON and publishes it.
func (p *SnapshotPublisher) PublishSnapshot(ctx context.Context, snap *contracts.DashboardSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := p.broker.Publish(ctx, contracts.TopicSnapshots, snap.Target.String(), data); err != nil {
		return fmt.Errorf("failed to publish snapshot generation %d: %w", snap.Generation, err)
	}
	return nil
}

// DecodeSnapshot parses a message produced by PublishSnapshot.
func DecodeSnapshot(msg Message) (*contracts.DashboardSnapshot, error) {
	var snap contracts.DashboardSnapshot
	if err := json.Unmarshal(msg.Value, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot at offset %d: %w", msg.Offset, err)
	}
	return &snap, nil
}

// SubscribeSnapshots subscribes to TopicSnapshots and returns decoded
// snapshots. Undecodable messages are logged and skipped. The channel is
// closed when the subscription ends or ctx is done.
func SubscribeSnapshots(ctx context.Context, b Broker, groupID string, log logger.Logger) (<-chan *contracts.DashboardSnapshot, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}

	msgs, err := b.Subscribe(ctx, contracts.TopicSnapshots, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicSnapshots, err)
	}

	out := make(chan *contracts.DashboardSnapshot, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range msgs {
			snap, err := DecodeSnapshot(msg)
			if err != nil {
				log.Error("[Snapshots] Skipping message %q: %v", msg.Key, err)
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
