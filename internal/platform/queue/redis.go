package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var RDB *redis.Client

// ConnectRedis dials Redis. Unlike the database, Redis is optional: on failure
// RDB stays nil and callers fall back to in-process stores.
func ConnectRedis(addr, password string, db int) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Could not connect to Redis, continuing without it")
		client.Close()
		return
	}
	RDB = client
	log.Info().Str("addr", addr).Msg("Successfully connected to Redis")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		log.Info().Msg("Redis connection closed")
	}
}
