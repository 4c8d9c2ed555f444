package payout

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
	"electionledger/internal/platform/messaging"
)

type capturePublisher struct {
	topic     string
	events    []ports.EventEnvelope
	consumers int
	err       error
}

func (p *capturePublisher) Deliver(_ context.Context, topic string, event ports.EventEnvelope) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.topic = topic
	p.events = append(p.events, event)
	return p.consumers, nil
}

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func TestTransferPublishesRequest(t *testing.T) {
	publisher := &capturePublisher{consumers: 1}
	payer := EventBusPayer{Publisher: publisher, Clock: stubClock{now: time.Unix(1714000000, 0)}}

	ref, err := payer.Transfer(context.Background(), ports.RewardTransfer{
		RewardID:   "reward-9",
		ElectionID: 3,
		Recipient:  " voter1 ",
		Amount:     big.NewInt(25),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if ref != "bus:reward-9" {
		t.Fatalf("unexpected reference %q", ref)
	}
	if publisher.topic != TopicTransferRequested || len(publisher.events) != 1 {
		t.Fatalf("expected one transfer request, got %q %d", publisher.topic, len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventID != "reward-9" || event.PartitionKey != "voter1" {
		t.Fatalf("unexpected envelope: %+v", event)
	}

	var data map[string]any
	if err := json.Unmarshal(event.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data["amount"] != "25" || data["recipient"] != "voter1" || data["election_id"] != float64(3) {
		t.Fatalf("unexpected payload: %v", data)
	}
}

func TestTransferValidatesInput(t *testing.T) {
	payer := EventBusPayer{Publisher: &capturePublisher{consumers: 1}}
	ctx := context.Background()

	if _, err := payer.Transfer(ctx, ports.RewardTransfer{RewardID: "r", Amount: big.NewInt(1)}); !errors.Is(err, domainerrors.ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
	if _, err := payer.Transfer(ctx, ports.RewardTransfer{RewardID: "r", Recipient: "v", Amount: big.NewInt(0)}); !errors.Is(err, domainerrors.ErrInvalidRewardAmount) {
		t.Fatalf("expected ErrInvalidRewardAmount, got %v", err)
	}
	if _, err := (EventBusPayer{}).Transfer(ctx, ports.RewardTransfer{RewardID: "r", Recipient: "v", Amount: big.NewInt(1)}); err == nil {
		t.Fatalf("expected error without a publisher")
	}
}

func TestTransferSurfacesPublishFailure(t *testing.T) {
	boom := errors.New("bus down")
	payer := EventBusPayer{Publisher: &capturePublisher{err: boom}}
	_, err := payer.Transfer(context.Background(), ports.RewardTransfer{RewardID: "r", Recipient: "v", Amount: big.NewInt(1)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestTransferWithoutConsumerIsUnavailable(t *testing.T) {
	publisher := &capturePublisher{}
	payer := EventBusPayer{Publisher: publisher}
	ref, err := payer.Transfer(context.Background(), ports.RewardTransfer{RewardID: "r-1", Recipient: "v", Amount: big.NewInt(10)})
	if !errors.Is(err, domainerrors.ErrPayerUnavailable) {
		t.Fatalf("expected ErrPayerUnavailable, got ref %q err %v", ref, err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected the request to be offered once, got %d", len(publisher.events))
	}
}

func TestTransferOverBusNeedsSubscriber(t *testing.T) {
	bus := messaging.NewBus(nil, nil)
	payer := EventBusPayer{Publisher: bus}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transfer := ports.RewardTransfer{RewardID: "r-1", Recipient: "voter1", Amount: big.NewInt(10)}

	if _, err := payer.Transfer(ctx, transfer); !errors.Is(err, domainerrors.ErrPayerUnavailable) {
		t.Fatalf("expected ErrPayerUnavailable without subscribers, got %v", err)
	}

	received := make(chan string, 1)
	if err := bus.Subscribe(ctx, TopicTransferRequested, "token-facility", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event.EventID
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	ref, err := payer.Transfer(ctx, transfer)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if ref != "bus:r-1" {
		t.Fatalf("unexpected reference %q", ref)
	}
	select {
	case id := <-received:
		if id != "r-1" {
			t.Fatalf("unexpected transfer request %s", id)
		}
	case <-time.After(time.Second):
		t.Fatal("transfer request not delivered")
	}
}
