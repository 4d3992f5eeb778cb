package pod

import (
	"context"
	"fmt"
	"log/slog"
)

// Lenient exposes the four agent-facing operations with best-effort
// semantics: nothing is returned or raised on failure. Reads fall back to an
// empty slice and writes become no-ops, with a log line explaining why. An
// empty result is therefore indistinguishable from a failed read except
// through the logs; use the Client methods when that matters.
//
// One write path is stricter than plain read-then-publish: UpdateData never
// replaces a resource whose current content could not be read (any failure
// other than 404), where the read-as-empty behaviour would overwrite it with
// the new values alone.
type Lenient struct {
	client *Client
}

// Lenient returns the best-effort facade of c.
func (c *Client) Lenient() *Lenient {
	return &Lenient{client: c}
}

// NewLenient constructs a Client for podURL and wraps it.
func NewLenient(podURL string, opts ...Option) (*Lenient, error) {
	c, err := New(podURL, opts...)
	if err != nil {
		return nil, err
	}
	return c.Lenient(), nil
}

// Client returns the strict client behind l.
func (l *Lenient) Client() *Client {
	return l.client
}

// CreateContainer ensures the container exists.
func (l *Lenient) CreateContainer(ctx context.Context, name string) {
	defer l.recover("create_container")
	if err := l.client.EnsureContainer(ctx, name); err != nil {
		l.report("error creating container", err, "container", name)
	}
}

// PublishData replaces the resource content with values.
func (l *Lenient) PublishData(ctx context.Context, container, name string, values ...any) {
	defer l.recover("publish")
	if err := l.client.PublishValues(ctx, container, name, values...); err != nil {
		l.report("error publishing data", err, "container", container, "resource", name)
	}
}

// ReadData returns the resource items, or an empty slice on any failure.
func (l *Lenient) ReadData(ctx context.Context, container, name string) (items []string) {
	defer func() {
		if items == nil {
			items = []string{}
		}
	}()
	defer l.recover("read")
	res, err := l.client.Read(ctx, container, name)
	if err != nil {
		l.report("error reading data", err, "container", container, "resource", name)
		return []string{}
	}
	return res.Items
}

// UpdateData appends values to the resource. If the current content cannot
// be read for a reason other than absence, nothing is written.
func (l *Lenient) UpdateData(ctx context.Context, container, name string, values ...any) {
	defer l.recover("update")
	if err := l.client.UpdateValues(ctx, container, name, values...); err != nil {
		l.report("error updating data", err, "container", container, "resource", name)
	}
}

func (l *Lenient) report(msg string, err error, args ...any) {
	args = append(args, "err", err)
	if code, ok := StatusCode(err); ok {
		args = append(args, "status", code)
	}
	l.logger().Warn(msg, args...)
}

func (l *Lenient) recover(op string) {
	if r := recover(); r != nil {
		l.logger().Error("recovered from panic", "op", op, "panic", fmt.Sprint(r))
	}
}

func (l *Lenient) logger() *slog.Logger {
	if l == nil || l.client == nil || l.client.logger == nil {
		return discardLogger()
	}
	return l.client.logger
}
