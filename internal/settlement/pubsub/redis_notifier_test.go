package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

type fakePublisher struct {
	channel string
	payload []byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func TestNotifySettlement_PerUserChannel(t *testing.T) {
	fp := &fakePublisher{}
	n := NewRedisNotifier(fp, "")

	if err := n.NotifySettlement(context.Background(), events.BetSettled{BetID: "b1", UserID: "u42", Status: "LOST"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if fp.channel != "notifications:user:u42" {
		t.Fatalf("channel=%q", fp.channel)
	}

	var got Notification
	if err := json.Unmarshal(fp.payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "bet_settled" || got.Payload.BetID != "b1" || got.Payload.Status != "LOST" {
		t.Fatalf("notification=%+v", got)
	}
}
