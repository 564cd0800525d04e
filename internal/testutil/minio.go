package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	minioImage = "minio/minio:latest"
	minioPort  = nat.Port("9000/tcp")

	// MinIOAccessKey and MinIOSecretKey are the test server credentials.
	MinIOAccessKey = "lectern-test"
	MinIOSecretKey = "lectern-test-secret"
)

// MinIO describes a running MinIO test container.
type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
}

// StartMinIO launches an S3-compatible MinIO container for this test and
// waits for it to become healthy. The container is removed when the test
// finishes.
func StartMinIO(t TestingT) *MinIO {
	t.Helper()
	cli := DockerClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := ensureImage(ctx, cli, minioImage); err != nil {
		t.Skipf("pulling %s: %v", minioImage, err)
		return nil
	}

	hostPort, err := FindFreePort()
	if err != nil {
		t.Skipf("finding free port: %v", err)
		return nil
	}

	containerConfig := &container.Config{
		Image: minioImage,
		Cmd:   []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=" + MinIOAccessKey,
			"MINIO_ROOT_PASSWORD=" + MinIOSecretKey,
		},
		Labels: ContainerLabels(t),
		ExposedPorts: nat.PortSet{
			minioPort: struct{}{},
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			minioPort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: hostPort},
			},
		},
	}

	resp, err := cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, UniqueContainerName(t, "minio"))
	if err != nil {
		t.Skipf("creating minio container: %v", err)
		return nil
	}
	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		t.Skipf("starting minio container: %v", err)
		return nil
	}

	endpoint := fmt.Sprintf("http://127.0.0.1:%s", hostPort)
	if err := waitForMinIO(ctx, endpoint, 30*time.Second); err != nil {
		t.Skipf("minio never became healthy: %v", err)
		return nil
	}
	return &MinIO{
		Endpoint:  endpoint,
		AccessKey: MinIOAccessKey,
		SecretKey: MinIOSecretKey,
	}
}

func waitForMinIO(ctx context.Context, endpoint string, timeout time.Duration) error {
	httpClient := &http.Client{Timeout: 2 * time.Second}
	url := endpoint + "/minio/health/live"

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
			if err != nil {
				return err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return err
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(timeout.Seconds())),
		retry.Delay(1*time.Second),
	)
}

func ensureImage(ctx context.Context, cli *client.Client, name string) error {
	if _, err := cli.ImageInspect(ctx, name); err == nil {
		return nil
	}
	reader, err := cli.ImagePull(ctx, name, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}
