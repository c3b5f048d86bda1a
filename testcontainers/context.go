// Package testcontainers starts throwaway Redis and PostgreSQL containers for
// integration tests. Containers are terminated through t.Cleanup.
//
// Integration tests only run when INTEGRATION is set and -short is not:
//
//	func TestStore(t *testing.T) {
//	    pg := testcontainers.Postgres(t)
//	    store, err := postgres.Open(ctx, pg.GetDSN(), nil)
//	    ...
//	}
//
// Prerequisites:
//   - Docker must be installed and running
//   - Network access to pull Docker images
//
// Environment Variables:
//   - INTEGRATION: set to any value to enable container backed tests
//   - TESTCONTAINERS_RYUK_DISABLED: Set to "true" to disable Ryuk (container cleanup)
//   - DOCKER_HOST: Custom Docker host (optional)
package testcontainers

import (
	"context"
	"os"
	"testing"
	"time"
)

// defaultTimeout is the maximum time to wait for container startup
const defaultTimeout = 60 * time.Second

// RequireIntegration skips t unless container backed tests are enabled.
func RequireIntegration(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	if os.Getenv("INTEGRATION") == "" {
		t.Skip("skipping integration test: INTEGRATION not set")
	}
}

// Redis starts a Redis container for the duration of t.
func Redis(t *testing.T) *RedisContainer {
	t.Helper()
	RequireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	container, err := NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to initialize Redis: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate Redis container: %v", err)
		}
	})

	return container
}

// Postgres starts a PostgreSQL container for the duration of t.
func Postgres(t *testing.T) *PostgresContainer {
	t.Helper()
	RequireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	container, err := NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to initialize Postgres: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate Postgres container: %v", err)
		}
	})

	return container
}
