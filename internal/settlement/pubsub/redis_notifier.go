package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

const DefaultPrefix = "notifications:user"

// publisher é o subconjunto de *redis.Client usado pelo notifier
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publica o resultado da liquidação no canal do usuário;
// o serviço de notificações em tempo real assina esses canais
type RedisNotifier struct {
	r      publisher
	prefix string
}

func NewRedisNotifier(r publisher, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisNotifier{r: r, prefix: prefix}
}

// Channel retorna o canal do usuário, ex: "notifications:user:42"
func (n *RedisNotifier) Channel(userID string) string { return n.prefix + ":" + userID }

// Payload padrão da notificação
type Notification struct {
	Type    string            `json:"type"` // "bet_settled"
	Payload events.BetSettled `json:"payload"`
}

func (n *RedisNotifier) NotifySettlement(ctx context.Context, ev events.BetSettled) error {
	b, err := json.Marshal(Notification{Type: "bet_settled", Payload: ev})
	if err != nil {
		return err
	}
	return n.r.Publish(ctx, n.Channel(ev.UserID), b).Err()
}
