package testcontainers

import (
	"context"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisImage = "redis:7-alpine"
	redisPort  = "6379/tcp"
)

// RedisContainer is an unauthenticated Redis server.
type RedisContainer struct {
	endpoint
}

func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	ep, err := start(ctx, testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{redisPort},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, redisPort)
	if err != nil {
		return nil, terminate(ep, err)
	}

	return &RedisContainer{endpoint: ep}, nil
}

// GetAddress returns host:port.
func (c *RedisContainer) GetAddress() string {
	return c.address()
}

// GetURL returns a redis:// URL accepted by REDIS_URL.
func (c *RedisContainer) GetURL() string {
	return "redis://" + c.address() + "/0"
}
