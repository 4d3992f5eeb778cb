package pod_sdk

import (
	"fmt"
	"os"
	"strings"

	"github.com/Ratio1/pod_sdk_go/pkg/pod"
	podmock "github.com/Ratio1/pod_sdk_go/pkg/pod/mock"
)

const (
	envMode     = "POD_RUNTIME_MODE"
	envPodURL   = "POD_URL"
	envMockSeed = "POD_MOCK_SEED"

	// ModeAuto picks http when a pod URL is configured and mock otherwise.
	ModeAuto = "auto"
	// ModeHTTP talks to a real pod.
	ModeHTTP = "http"
	// ModeMock uses an in-memory pod.
	ModeMock = "mock"

	// MockPodURL is the pod URL reported by clients running in mock mode.
	MockPodURL = "http://pod.mock/"
)

// Settings carries the runtime selection, usually read from the environment.
type Settings struct {
	Mode     string
	PodURL   string
	MockSeed string
}

// SettingsFromEnv reads POD_RUNTIME_MODE, POD_URL and POD_MOCK_SEED.
func SettingsFromEnv() Settings {
	return Settings{
		Mode:     os.Getenv(envMode),
		PodURL:   os.Getenv(envPodURL),
		MockSeed: os.Getenv(envMockSeed),
	}
}

// NewFromEnv initialises a Client based on environment variables and returns
// the resolved mode ("http" or "mock").
func NewFromEnv(opts ...pod.Option) (*pod.Client, string, error) {
	return NewFromSettings(SettingsFromEnv(), opts...)
}

// NewFromSettings is NewFromEnv with explicit settings.
func NewFromSettings(s Settings, opts ...pod.Option) (*pod.Client, string, error) {
	mode := strings.ToLower(strings.TrimSpace(s.Mode))
	podURL := strings.TrimSpace(s.PodURL)

	switch mode {
	case "", ModeAuto:
		if podURL != "" {
			return newHTTPClient(podURL, opts)
		}
		return newMockClient(s.MockSeed, opts)
	case ModeHTTP:
		if podURL == "" {
			return nil, "", fmt.Errorf("pod_sdk: HTTP mode requires %s", envPodURL)
		}
		return newHTTPClient(podURL, opts)
	case ModeMock:
		return newMockClient(s.MockSeed, opts)
	default:
		return nil, "", fmt.Errorf("pod_sdk: unsupported %s value %q", envMode, s.Mode)
	}
}

func newHTTPClient(podURL string, opts []pod.Option) (*pod.Client, string, error) {
	client, err := pod.New(podURL, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("pod_sdk: init HTTP client: %w", err)
	}
	return client, ModeHTTP, nil
}

func newMockClient(seedPath string, opts []pod.Option) (*pod.Client, string, error) {
	store := podmock.New()
	if path := strings.TrimSpace(seedPath); path != "" {
		seed, err := podmock.LoadSeed(path)
		if err != nil {
			return nil, "", fmt.Errorf("pod_sdk: load mock seed: %w", err)
		}
		if err := store.Apply(seed); err != nil {
			return nil, "", fmt.Errorf("pod_sdk: apply mock seed: %w", err)
		}
	}
	return pod.NewWithTransport(pod.MustParseRef(MockPodURL), store, opts...), ModeMock, nil
}
