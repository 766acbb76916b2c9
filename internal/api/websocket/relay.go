package websocket

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Relay tails the enriched game stream and hands each entry to the hub
type Relay struct {
	client *redis.Client
	stream string
	hub    *Hub
	block  time.Duration
}

// NewRelay creates a relay reading stream from new entries onward
func NewRelay(client *redis.Client, stream string, hub *Hub) *Relay {
	return &Relay{
		client: client,
		stream: stream,
		hub:    hub,
		block:  5 * time.Second,
	}
}

// Run reads until ctx is cancelled
func (r *Relay) Run(ctx context.Context) error {
	lastID := "$"
	for {
		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{r.stream, lastID},
			Count:   100,
			Block:   r.block,
		}).Result()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			r.hub.log.WithError(err).Warn("stream read failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, entry := range s.Messages {
				lastID = entry.ID
				if msg, ok := decodeEntry(entry); ok {
					r.hub.Broadcast(msg)
				}
			}
		}
	}
}

// decodeEntry reads the game_id and data fields written by the publisher
func decodeEntry(entry redis.XMessage) (Message, bool) {
	data, ok := entry.Values["data"].(string)
	if !ok || data == "" {
		return Message{}, false
	}

	var gameID int
	switch v := entry.Values["game_id"].(type) {
	case string:
		gameID, _ = strconv.Atoi(v)
	case int64:
		gameID = int(v)
	}
	return Message{GameID: gameID, Data: []byte(data)}, true
}
