package jwt

import (
	"support-bridge-backend/internal/env"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	AGENT_SECRET string
	RedisClient  *redis.Client
)

const RefreshTokenTTL = 24 * 30 * time.Hour

const (
	RoleAgent Role = iota
)

var RoleSecrets = map[Role]string{}

func init() {
	AGENT_SECRET = env.Get(env.AgentSecretKey)
	RoleSecrets[RoleAgent] = AGENT_SECRET

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.AuthRedisURL),
		Password: env.Get(env.AuthRedisPass),
		DB:       0,
	})
}
