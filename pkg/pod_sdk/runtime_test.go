package pod_sdk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ratio1/pod_sdk_go/pkg/pod"
	"github.com/Ratio1/pod_sdk_go/pkg/pod/mock"
	"github.com/Ratio1/pod_sdk_go/pkg/pod_sdk"
)

func TestNewFromEnvHTTPMode(t *testing.T) {
	store := mock.New()
	srv := httptest.NewServer(store.Handler())
	defer srv.Close()

	t.Setenv("POD_RUNTIME_MODE", "http")
	t.Setenv("POD_URL", srv.URL)
	t.Setenv("POD_MOCK_SEED", "")

	client, mode, err := pod_sdk.NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if mode != "http" {
		t.Fatalf("expected http mode, got %q", mode)
	}
	if client.Ref().String() != srv.URL+"/" {
		t.Fatalf("unexpected pod URL %q", client.Ref().String())
	}

	if err := client.EnsureContainer(context.Background(), "notes"); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	if got := store.Requests(http.MethodPut); got != 1 {
		t.Fatalf("expected the HTTP pod to receive 1 PUT, got %d", got)
	}
}

func TestNewFromEnvHTTPModeRequiresURL(t *testing.T) {
	t.Setenv("POD_RUNTIME_MODE", "http")
	t.Setenv("POD_URL", "")

	if _, _, err := pod_sdk.NewFromEnv(); err == nil {
		t.Fatalf("expected error without POD_URL")
	}
}

func TestNewFromEnvUnsupportedMode(t *testing.T) {
	t.Setenv("POD_RUNTIME_MODE", "grpc")

	if _, _, err := pod_sdk.NewFromEnv(); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
}

func TestNewFromEnvMockAutoFallback(t *testing.T) {
	t.Setenv("POD_RUNTIME_MODE", "")
	t.Setenv("POD_URL", "")
	t.Setenv("POD_MOCK_SEED", "")

	client, mode, err := pod_sdk.NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if mode != "mock" {
		t.Fatalf("expected mock mode, got %q", mode)
	}
	if client.Ref().String() != pod_sdk.MockPodURL {
		t.Fatalf("unexpected pod URL %q", client.Ref().String())
	}

	ctx := context.Background()
	if err := client.Update(ctx, "notes", "todo.txt", []string{"a"}); err != nil {
		t.Fatalf("mock Update: %v", err)
	}
}

func TestNewFromEnvSeeds(t *testing.T) {
	seed := "resources:\n  - container: notes\n    name: todo.txt\n    items: [buy milk]\n"
	seedFile := writeTempFile(t, "pod-seed.yaml", []byte(seed))

	t.Setenv("POD_RUNTIME_MODE", "mock")
	t.Setenv("POD_URL", "https://ignored.example/")
	t.Setenv("POD_MOCK_SEED", seedFile)

	client, mode, err := pod_sdk.NewFromEnv(pod.WithConditionalUpdates(2))
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if mode != "mock" {
		t.Fatalf("expected mock mode, got %q", mode)
	}

	res, err := client.Read(context.Background(), "notes", "todo.txt")
	if err != nil {
		t.Fatalf("Read seeded resource: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0] != "buy milk" {
		t.Fatalf("unexpected seeded items: %#v", res.Items)
	}
}

func TestNewFromSettingsBadSeed(t *testing.T) {
	_, _, err := pod_sdk.NewFromSettings(pod_sdk.Settings{
		Mode:     "mock",
		MockSeed: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	if err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
