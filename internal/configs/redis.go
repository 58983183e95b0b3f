package config

import (
	"log"

	"github.com/redis/rueidis"
)

// NewRedisClient connects to the redis used for the notification token
// bucket and the change-feed mirror. Neither reads cached keys, so
// client-side caching stays off.
func NewRedisClient(addr string) rueidis.Client {
	redisClient, err := rueidis.NewClient(
		rueidis.ClientOption{
			InitAddress:  []string{addr},
			ClientName:   "engagement",
			DisableCache: true,
		},
	)
	if err != nil {
		log.Fatalf("failed to create redis client: %v", err)
	}

	return redisClient
}
