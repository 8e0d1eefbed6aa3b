package unit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	ballotservice "choices/contexts/polling-core/ballot-service"
	ballotworkers "choices/contexts/polling-core/ballot-service/application/workers"
	"choices/contexts/polling-core/ballot-service/ports"
	httptransport "choices/contexts/polling-core/ballot-service/transport/http"
)

type capturedEvent struct {
	topic string
	event ports.EventEnvelope
}

type capturePublisher struct {
	published []capturedEvent
	fail      bool
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, capturedEvent{topic: topic, event: event})
	return nil
}

func TestBallotOutboxRelayPublishesCastEvents(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(activeSinglePoll(false))

	cast, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-relay-1", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-01",
	})
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	pub := &capturePublisher{}
	relay := ballotworkers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: pub,
		Clock:     module.Store,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
	if pub.published[0].topic != "ballot.cast" {
		t.Fatalf("unexpected topic %s", pub.published[0].topic)
	}
	var payload struct {
		PollID   string `json:"poll_id"`
		BallotID string `json:"ballot_id"`
	}
	if err := json.Unmarshal(pub.published[0].event.Data, &payload); err != nil {
		t.Fatalf("decode event payload failed: %v", err)
	}
	if payload.PollID != "poll-1" || payload.BallotID != cast.BallotID {
		t.Fatalf("unexpected event payload %+v", payload)
	}

	// Published rows are marked and a second cycle finds nothing to do.
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("relay republished already-delivered rows: %d", len(pub.published))
	}
}

func TestBallotOutboxRelayRetriesAfterBrokerFailure(t *testing.T) {
	module := ballotservice.NewInMemoryModule(nil, nil)
	module.Store.SetPoll(activeSinglePoll(false))

	if _, err := module.Handler.CastBallotHandler(context.Background(), "voter-1", "idem-relay-2", httptransport.CastBallotRequest{
		PollID: "poll-1",
		Option: "opt-02",
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	pub := &capturePublisher{fail: true}
	relay := ballotworkers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: pub,
		Clock:     module.Store,
	}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected relay to surface broker failure")
	}

	// The row stays pending until a later cycle succeeds.
	pub.fail = false
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry run failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected the pending row to publish on retry, got %d", len(pub.published))
	}
}
