package testcontainers

import (
	"context"
	"net/url"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresPort     = "5432/tcp"
	postgresUser     = "reviewlink"
	postgresPassword = "reviewlink"
	postgresDatabase = "reviewlink_test"
)

type PostgresContainer struct {
	endpoint
	User     string
	Password string
	Database string
}

func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	ep, err := start(ctx, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDatabase,
		},
		// the server restarts once after initdb
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		),
	}, postgresPort)
	if err != nil {
		return nil, terminate(ep, err)
	}

	return &PostgresContainer{
		endpoint: ep,
		User:     postgresUser,
		Password: postgresPassword,
		Database: postgresDatabase,
	}, nil
}

// GetDSN returns a pgx compatible connection URL.
func (c *PostgresContainer) GetDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.address(),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}

	return u.String()
}
