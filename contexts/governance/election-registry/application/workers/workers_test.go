package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	"electionledger/contexts/governance/election-registry/ports"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeOutbox struct {
	pending   []ports.OutboxMessage
	published []string
	markErr   error
}

func (f *fakeOutbox) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	items := make([]ports.OutboxMessage, 0, len(f.pending))
	for _, message := range f.pending {
		done := false
		for _, id := range f.published {
			if id == message.OutboxID {
				done = true
			}
		}
		if !done {
			items = append(items, message)
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeOutbox) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, outboxID)
	return nil
}

type recordingPublisher struct {
	topics []string
	failOn string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if event.EventID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic+"/"+event.EventID)
	return nil
}

func outboxMessage(t *testing.T, eventID string, eventType string) ports.OutboxMessage {
	t.Helper()
	payload, err := json.Marshal(ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    time.Unix(1700000000, 0).UTC(),
		SourceService: "election-registry",
		SchemaVersion: 1,
		PartitionKey:  "0",
		Data:          json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return ports.OutboxMessage{OutboxID: "row-" + eventID, EventType: eventType, Payload: payload}
}

func TestOutboxRelayPublishesInOrder(t *testing.T) {
	outbox := &fakeOutbox{pending: []ports.OutboxMessage{
		outboxMessage(t, "e1", "election.created"),
		outboxMessage(t, "e2", "candidate.added"),
		outboxMessage(t, "e3", "vote.cast"),
	}}
	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: outbox, Publisher: publisher, BatchSize: 2}

	count, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected batch of 2, got %d", count)
	}
	count, err = relay.RunOnce(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("expected final row, got %d err=%v", count, err)
	}

	want := []string{"election.created/e1", "candidate.added/e2", "vote.cast/e3"}
	if len(publisher.topics) != len(want) {
		t.Fatalf("expected %v, got %v", want, publisher.topics)
	}
	for i := range want {
		if publisher.topics[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, publisher.topics)
		}
	}
}

func TestOutboxRelayStopsAtFirstFailure(t *testing.T) {
	outbox := &fakeOutbox{pending: []ports.OutboxMessage{
		outboxMessage(t, "e1", "election.created"),
		outboxMessage(t, "e2", "vote.cast"),
		outboxMessage(t, "e3", "vote.cast"),
	}}
	relay := OutboxRelay{Outbox: outbox, Publisher: &recordingPublisher{failOn: "e2"}}

	count, err := relay.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected publish failure")
	}
	if count != 1 || len(outbox.published) != 1 || outbox.published[0] != "row-e1" {
		t.Fatalf("expected only e1 marked published, got %d %v", count, outbox.published)
	}
}

func TestOutboxRelayRejectsCorruptPayload(t *testing.T) {
	outbox := &fakeOutbox{pending: []ports.OutboxMessage{{OutboxID: "bad", Payload: []byte("{")}}}
	if _, err := (OutboxRelay{Outbox: outbox, Publisher: &recordingPublisher{}}).RunOnce(context.Background()); err == nil {
		t.Fatalf("expected decode failure")
	}
	if len(outbox.published) != 0 {
		t.Fatalf("corrupt row must stay pending")
	}
}

type fakeLedger struct {
	entries map[string]*entities.RewardEntry
	order   []string
}

func newFakeLedger(entries ...entities.RewardEntry) *fakeLedger {
	ledger := &fakeLedger{entries: map[string]*entities.RewardEntry{}}
	for i := range entries {
		entry := entries[i]
		ledger.entries[entry.RewardID] = &entry
		ledger.order = append(ledger.order, entry.RewardID)
	}
	return ledger
}

func (l *fakeLedger) ListPendingRewards(_ context.Context, limit int) ([]entities.RewardEntry, error) {
	items := []entities.RewardEntry{}
	for _, id := range l.order {
		if l.entries[id].Status == entities.RewardStatusPending && len(items) < limit {
			items = append(items, *l.entries[id])
		}
	}
	return items, nil
}

func (l *fakeLedger) ListRewardsByElection(context.Context, int64) ([]entities.RewardEntry, error) {
	return nil, nil
}

func (l *fakeLedger) MarkRewardSettled(_ context.Context, rewardID string, reference string, at time.Time) error {
	entry, ok := l.entries[rewardID]
	if !ok {
		return domainerrors.ErrRewardNotFound
	}
	entry.Status = entities.RewardStatusSettled
	entry.SettlementRef = reference
	entry.Attempts++
	entry.SettledAt = &at
	return nil
}

func (l *fakeLedger) MarkRewardAttemptFailed(_ context.Context, rewardID string, reason string, exhausted bool, _ time.Time) error {
	entry, ok := l.entries[rewardID]
	if !ok {
		return domainerrors.ErrRewardNotFound
	}
	entry.Attempts++
	entry.LastError = reason
	if exhausted {
		entry.Status = entities.RewardStatusFailed
	}
	return nil
}

type flakyPayer struct {
	failFor     map[string]bool
	unavailable bool
	calls       []string
}

func (p *flakyPayer) Transfer(_ context.Context, transfer ports.RewardTransfer) (string, error) {
	p.calls = append(p.calls, transfer.RewardID)
	if p.unavailable {
		return "", fmt.Errorf("no consumer: %w", domainerrors.ErrPayerUnavailable)
	}
	if p.failFor[transfer.Recipient] {
		return "", errors.New("token transfer reverted")
	}
	return "tx-" + transfer.RewardID, nil
}

func reward(id string, voter string) entities.RewardEntry {
	return entities.NewRewardEntry(id, 0, voter, 0, big.NewInt(10), time.Unix(1700000000, 0))
}

func TestRewardSettlerSettlesAndRetries(t *testing.T) {
	ledger := newFakeLedger(reward("r1", "alice"), reward("r2", "bob"))
	payer := &flakyPayer{failFor: map[string]bool{"bob": true}}
	settler := RewardSettler{
		Rewards:     ledger,
		Payer:       payer,
		Clock:       fixedClock{now: time.Unix(1700000500, 0)},
		MaxAttempts: 2,
	}

	report, err := settler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if report.Settled != 1 || report.Retried != 1 || report.Failed != 0 {
		t.Fatalf("unexpected first report: %+v", report)
	}
	if ledger.entries["r1"].SettlementRef != "tx-r1" {
		t.Fatalf("expected settlement reference, got %+v", ledger.entries["r1"])
	}
	if ledger.entries["r2"].Status != entities.RewardStatusPending || ledger.entries["r2"].LastError == "" {
		t.Fatalf("expected retryable failure recorded, got %+v", ledger.entries["r2"])
	}

	report, err = settler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second settle failed: %v", err)
	}
	if report.Failed != 1 || ledger.entries["r2"].Status != entities.RewardStatusFailed {
		t.Fatalf("expected r2 to exhaust its attempts, got %+v %+v", report, ledger.entries["r2"])
	}

	report, err = settler.RunOnce(context.Background())
	if err != nil || report != (SettlementReport{}) {
		t.Fatalf("expected empty cycle, got %+v err=%v", report, err)
	}
	if len(payer.calls) != 3 {
		t.Fatalf("expected 3 transfer attempts, got %v", payer.calls)
	}
}

func TestRewardSettlerDisabledDoesNothing(t *testing.T) {
	ledger := newFakeLedger(reward("r1", "alice"))
	payer := &flakyPayer{}
	report, err := (RewardSettler{Rewards: ledger, Payer: payer, Disabled: true}).RunOnce(context.Background())
	if err != nil || report != (SettlementReport{}) {
		t.Fatalf("expected no-op, got %+v err=%v", report, err)
	}
	if len(payer.calls) != 0 {
		t.Fatalf("disabled settler must not transfer")
	}
}

func TestRewardSettlerDefersWhilePayerUnavailable(t *testing.T) {
	ledger := newFakeLedger(reward("r1", "alice"), reward("r2", "bob"))
	payer := &flakyPayer{unavailable: true}
	settler := RewardSettler{Rewards: ledger, Payer: payer, MaxAttempts: 1}

	for cycle := 0; cycle < 3; cycle++ {
		report, err := settler.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("cycle %d failed: %v", cycle, err)
		}
		if report.Deferred != 2 || report.Settled != 0 || report.Retried != 0 || report.Failed != 0 {
			t.Fatalf("cycle %d: unexpected report %+v", cycle, report)
		}
	}
	for _, id := range []string{"r1", "r2"} {
		entry := ledger.entries[id]
		if entry.Status != entities.RewardStatusPending || entry.Attempts != 0 {
			t.Fatalf("expected %s to stay pending without attempts, got %+v", id, entry)
		}
	}
	if len(payer.calls) != 3 {
		t.Fatalf("expected one offer per cycle, got %v", payer.calls)
	}

	payer.unavailable = false
	report, err := settler.RunOnce(context.Background())
	if err != nil || report.Settled != 2 {
		t.Fatalf("expected both rewards settled once the payer is back, got %+v err=%v", report, err)
	}
}
