package pod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Ratio1/pod_sdk_go/internal/ldpapi"
	"github.com/Ratio1/pod_sdk_go/pkg/lines"
)

// Read fetches <pod>/<container>/<name> and decodes its items. A missing
// resource yields ErrNotFound; any other non-200 outcome is an error.
func (c *Client) Read(ctx context.Context, container, name string) (*Resource, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resourceURL, err := c.ref.ResourceURL(container, name)
	if err != nil {
		return nil, err
	}
	return c.read(ctx, c.opLogger("read", "url", resourceURL), resourceURL)
}

// Write replaces the resource content with items. Items must not contain
// line breaks.
func (c *Client) Write(ctx context.Context, container, name string, items []string) error {
	if err := c.ready(); err != nil {
		return err
	}
	resourceURL, err := c.ref.ResourceURL(container, name)
	if err != nil {
		return err
	}
	return c.write(ctx, c.opLogger("write", "url", resourceURL), resourceURL, items, nil)
}

// Update appends newItems to the resource: it reads the current items and
// writes them back followed by newItems. A missing resource counts as empty.
//
// Without WithConditionalUpdates or WithResourceLocking this is a plain
// read-modify-write: two concurrent updates may both read the same state and
// the second write silently discards the first one's items.
func (c *Client) Update(ctx context.Context, container, name string, newItems []string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := lines.Check(newItems); err != nil {
		return fmt.Errorf("pod: update: %w", err)
	}
	resourceURL, err := c.ref.ResourceURL(container, name)
	if err != nil {
		return err
	}
	log := c.opLogger("update", "url", resourceURL, "new_items", len(newItems))

	if c.locks != nil {
		unlock := c.locks.Lock(resourceURL)
		defer unlock()
	}

	if c.conditionalAttempts <= 0 {
		return c.update(ctx, log, resourceURL, newItems, false)
	}
	for attempt := 1; ; attempt++ {
		err := c.update(ctx, log, resourceURL, newItems, true)
		if err == nil || !errors.Is(err, ErrPreconditionFailed) || attempt >= c.conditionalAttempts {
			return err
		}
		log.Debug("resource changed concurrently, retrying update", "attempt", attempt)
	}
}

// PublishValues writes scalar values using their textual form.
func (c *Client) PublishValues(ctx context.Context, container, name string, values ...any) error {
	items, err := lines.Format(values...)
	if err != nil {
		return fmt.Errorf("pod: publish: %w", err)
	}
	return c.Write(ctx, container, name, items)
}

// UpdateValues appends scalar values using their textual form.
func (c *Client) UpdateValues(ctx context.Context, container, name string, values ...any) error {
	items, err := lines.Format(values...)
	if err != nil {
		return fmt.Errorf("pod: update: %w", err)
	}
	return c.Update(ctx, container, name, items)
}

func (c *Client) update(ctx context.Context, log *slog.Logger, resourceURL string, newItems []string, conditional bool) error {
	header := http.Header{}
	current, err := c.read(ctx, log, resourceURL)
	switch {
	case err == nil:
		if conditional && current.ETag != "" {
			header.Set("If-Match", current.ETag)
		}
	case errors.Is(err, ErrNotFound):
		current = &Resource{URL: resourceURL}
		if conditional {
			header.Set("If-None-Match", "*")
		}
	default:
		return fmt.Errorf("pod: update: %w", err)
	}

	items := make([]string, 0, len(current.Items)+len(newItems))
	items = append(items, current.Items...)
	items = append(items, newItems...)
	return c.write(ctx, log, resourceURL, items, header)
}

func (c *Client) read(ctx context.Context, log *slog.Logger, resourceURL string) (*Resource, error) {
	resp, err := c.transport.Get(ctx, resourceURL, ldpapi.ContentTypeText)
	if err != nil {
		if code, ok := StatusCode(err); ok && code == http.StatusNotFound {
			log.Debug("resource not found")
			return nil, fmt.Errorf("pod: read %s: %w", resourceURL, ErrNotFound)
		}
		log.Warn("failed to read data", "err", err)
		return nil, fmt.Errorf("pod: read %s: %w", resourceURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn("failed to read data", "status", resp.StatusCode)
		return nil, fmt.Errorf("pod: read %s: %w %d", resourceURL, ErrUnexpectedStatus, resp.StatusCode)
	}
	items := lines.Unmarshal(resp.Body)
	log.Debug("data read", "items", len(items))
	return &Resource{URL: resourceURL, Items: items, ETag: resp.ETag}, nil
}

func (c *Client) write(ctx context.Context, log *slog.Logger, resourceURL string, items []string, header http.Header) error {
	body, err := lines.Marshal(items)
	if err != nil {
		return fmt.Errorf("pod: write %s: %w", resourceURL, err)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", ldpapi.ContentTypeText)

	resp, err := c.transport.Put(ctx, resourceURL, body, header)
	if err != nil {
		if code, ok := StatusCode(err); ok && code == http.StatusPreconditionFailed {
			log.Debug("conditional write rejected")
			return fmt.Errorf("pod: write %s: %w", resourceURL, ErrPreconditionFailed)
		}
		log.Warn("failed to publish data", "err", err)
		return fmt.Errorf("pod: write %s: %w", resourceURL, err)
	}
	if !isWriteSuccess(resp.StatusCode) {
		log.Warn("failed to publish data", "status", resp.StatusCode)
		return fmt.Errorf("pod: write %s: %w %d", resourceURL, ErrUnexpectedStatus, resp.StatusCode)
	}
	log.Info("data published", "status", resp.StatusCode, "items", len(items))
	return nil
}
