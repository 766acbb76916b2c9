package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/apollo/internal/pbp"
)

// EnrichedStream carries one event per processed game
const EnrichedStream = "plays.enriched.american_football"

// GameEvent is the payload published for every stored game
type GameEvent struct {
	GameID    int        `json:"game_id"`
	Source    pbp.Source `json:"source"`
	Match     pbp.Match  `json:"match"`
	Plays     int        `json:"plays"`
	Enriched  bool       `json:"enriched"`
	FinalPlay *pbp.Play  `json:"final_play,omitempty"`
}

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: EnrichedStream,
		maxLen: 10000,
	}
}

// NewGameEvent summarizes one game's plays
func NewGameEvent(game []*pbp.Play, enriched bool) GameEvent {
	if len(game) == 0 {
		return GameEvent{}
	}
	last := game[len(game)-1]
	return GameEvent{
		GameID:    last.GameID,
		Source:    last.Source,
		Match:     last.Match,
		Plays:     len(game),
		Enriched:  enriched,
		FinalPlay: last,
	}
}

// PublishGame appends a game event to the enriched stream
func (rsp *RedisStreamPublisher) PublishGame(ctx context.Context, event GameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rsp.stream,
		MaxLen: rsp.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"game_id":   event.GameID,
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}
