package testcontainers

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"go.uber.org/multierr"
)

// endpoint is a started container and the host address its service port is
// mapped to.
type endpoint struct {
	testcontainers.Container
	Host string
	Port int
}

func (e endpoint) address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func start(ctx context.Context, req testcontainers.ContainerRequest, servicePort string) (endpoint, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return endpoint{}, fmt.Errorf("failed to start %s: %w", req.Image, err)
	}

	ans := endpoint{Container: container}

	ans.Host, err = container.Host(ctx)
	if err != nil {
		return ans, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, nat.Port(servicePort))
	if err != nil {
		return ans, fmt.Errorf("failed to get container port: %w", err)
	}

	ans.Port = mapped.Int()

	return ans, nil
}

// terminate stops a container whose setup failed half way and returns err.
func terminate(ep endpoint, err error) error {
	if ep.Container == nil {
		return err
	}

	return multierr.Append(err, ep.Terminate(context.Background()))
}
