package pod_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/pod_sdk_go/pkg/pod"
	"github.com/Ratio1/pod_sdk_go/pkg/pod/mock"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestLenientRoundTrip(t *testing.T) {
	store, _, client := newPodServer(t)
	l := client.Lenient()
	ctx := context.Background()

	l.CreateContainer(ctx, "sensors")
	assert.True(t, store.HasContainer("sensors"))

	l.PublishData(ctx, "sensors", "temp.txt", 20, 21)
	l.UpdateData(ctx, "sensors", "temp.txt", 22)
	assert.Equal(t, []string{"20", "21", "22"}, l.ReadData(ctx, "sensors", "temp.txt"))
	assert.Same(t, client, l.Client())
}

func TestLenientReadMissingReturnsEmpty(t *testing.T) {
	_, _, client := newPodServer(t)

	items := client.Lenient().ReadData(context.Background(), "notes", "missing.txt")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestLenientUnreachablePod(t *testing.T) {
	logger, logs := testLogger()
	l, err := pod.NewLenient("http://127.0.0.1:1/",
		pod.WithLogger(logger),
		pod.WithTimeouts(200*time.Millisecond, 200*time.Millisecond, time.Second),
	)
	require.NoError(t, err)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		l.CreateContainer(ctx, "notes")
		l.PublishData(ctx, "notes", "todo.txt", "a")
		l.UpdateData(ctx, "notes", "todo.txt", "b")
	})
	items := l.ReadData(ctx, "notes", "todo.txt")
	assert.Equal(t, []string{}, items)

	out := logs.String()
	assert.Contains(t, out, "error creating container")
	assert.Contains(t, out, "error publishing data")
	assert.Contains(t, out, "error updating data")
	assert.Contains(t, out, "error reading data")
}

func TestLenientLogsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	logger, logs := testLogger()
	l, err := pod.NewLenient(srv.URL, pod.WithLogger(logger))
	require.NoError(t, err)

	l.PublishData(context.Background(), "notes", "todo.txt", "a")
	assert.Contains(t, logs.String(), "status=403")
}

func TestLenientUpdateSkipsWriteOnReadFailure(t *testing.T) {
	var mu sync.Mutex
	methods := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods[r.Method]++
		mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l, err := pod.NewLenient(srv.URL)
	require.NoError(t, err)

	l.UpdateData(context.Background(), "notes", "todo.txt", "a")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, methods[http.MethodGet])
	assert.Equal(t, 0, methods[http.MethodPut])
}

type panickingTransport struct{}

func (panickingTransport) Probe(context.Context, string) bool { panic("probe exploded") }

func (panickingTransport) Put(context.Context, string, []byte, http.Header) (*pod.Response, error) {
	panic("put exploded")
}

func (panickingTransport) Get(context.Context, string, string) (*pod.Response, error) {
	panic("get exploded")
}

func TestLenientRecoversFromPanics(t *testing.T) {
	logger, logs := testLogger()
	l := pod.NewWithTransport(pod.MustParseRef(testPodURL), panickingTransport{}, pod.WithLogger(logger)).Lenient()
	ctx := context.Background()

	var items []string
	assert.NotPanics(t, func() {
		l.CreateContainer(ctx, "notes")
		l.PublishData(ctx, "notes", "todo.txt", "a")
		l.UpdateData(ctx, "notes", "todo.txt", "b")
		items = l.ReadData(ctx, "notes", "todo.txt")
	})
	assert.Equal(t, []string{}, items)
	assert.Contains(t, logs.String(), "recovered from panic")
	assert.Contains(t, logs.String(), "get exploded")
}

func TestLenientWithMockTransport(t *testing.T) {
	store := newMockPod(mock.WithStrictContainers())
	l := pod.NewWithTransport(pod.MustParseRef(testPodURL), store).Lenient()
	ctx := context.Background()

	l.PublishData(ctx, "notes", "todo.txt", "lost")
	_, ok := store.Items("notes", "todo.txt")
	assert.False(t, ok)

	l.CreateContainer(ctx, "notes")
	l.PublishData(ctx, "notes", "todo.txt", "kept")
	assert.Equal(t, []string{"kept"}, l.ReadData(ctx, "notes", "todo.txt"))
}
