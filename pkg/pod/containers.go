package pod

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/pod_sdk_go/internal/ldpapi"
)

// maxParallelEnsure bounds EnsureContainers fan-out.
const maxParallelEnsure = 4

// EnsureContainer makes sure <pod>/<name>/ exists. When the HEAD probe says
// it does, no write is issued. Otherwise the container is created with an
// empty PUT; a failed creation is returned and not retried.
func (c *Client) EnsureContainer(ctx context.Context, name string) error {
	if err := c.ready(); err != nil {
		return err
	}
	containerURL, err := c.ref.ContainerURL(name)
	if err != nil {
		return err
	}
	log := c.opLogger("ensure_container", "url", containerURL)

	if c.transport.Probe(ctx, containerURL) {
		log.Debug("container already exists")
		return nil
	}
	log.Debug("container not found, creating it")

	header := http.Header{}
	header.Set("Content-Type", ldpapi.ContentTypeTurtle)
	header.Set("Link", ldpapi.TypeLink(ldpapi.PersonalDataType))
	resp, err := c.transport.Put(ctx, containerURL, nil, header)
	if err != nil {
		log.Warn("container creation failed", "err", err)
		return fmt.Errorf("pod: create container %q: %w", name, err)
	}
	if !isWriteSuccess(resp.StatusCode) {
		log.Warn("container creation failed", "status", resp.StatusCode)
		return fmt.Errorf("pod: create container %q: %w %d", name, ErrUnexpectedStatus, resp.StatusCode)
	}
	log.Info("container created", "status", resp.StatusCode)
	return nil
}

// EnsureContainers ensures every named container exists, a few at a time.
// The first failure is returned once all in-flight calls finish.
func (c *Client) EnsureContainers(ctx context.Context, names ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelEnsure)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return c.EnsureContainer(gctx, name)
		})
	}
	return g.Wait()
}

func isWriteSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

func (c *Client) ready() error {
	if c == nil || c.transport == nil {
		return fmt.Errorf("pod: client is nil")
	}
	return nil
}
