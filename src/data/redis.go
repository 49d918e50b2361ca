package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const streamEvents = "election.events"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// PublishEvent fans a game event out on the election stream. A nil
// client disables publication; failures are the caller's to swallow.
func PublishEvent(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	if rdb == nil {
		return nil
	}
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		Values: payload,
	}).Result()
	return err
}
