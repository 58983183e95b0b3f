package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/rueidis"
)

// RedisPublisher mirrors changes onto redis pub/sub channels named
// "<prefix>:<topic>" for observers outside this process.
type RedisPublisher struct {
	client rueidis.Client
	prefix string
	log    *slog.Logger
}

func NewRedisPublisher(client rueidis.Client, prefix string, log *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, log: log}
}

func (p *RedisPublisher) Channel(topic string) string {
	return p.prefix + ":" + topic
}

func (p *RedisPublisher) Publish(ctx context.Context, change Change) {
	b, err := json.Marshal(change)
	if err != nil {
		return
	}

	cmd := p.client.B().Publish().Channel(p.Channel(change.Topic)).Message(rueidis.BinaryString(b)).Build()
	if err := p.client.Do(ctx, cmd).Error(); err != nil {
		p.log.Warn("change feed publish failed",
			slog.String("topic", change.Topic),
			slog.String("error", err.Error()))
	}
}
