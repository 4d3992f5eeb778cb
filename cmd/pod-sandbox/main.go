// Command pod-sandbox serves an in-memory Solid pod over HTTP for local
// development, with optional latency and failure injection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Ratio1/pod_sdk_go/internal/logging"
	podmock "github.com/Ratio1/pod_sdk_go/pkg/pod/mock"
)

type failConfig struct {
	rate float64
	code int
}

const (
	modeEnv   = "POD_RUNTIME_MODE"
	podURLEnv = "POD_URL"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pod-sandbox: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":8787", "listen address")
	root := flag.String("root", "/", "path prefix the pod is mounted under")
	seed := flag.String("seed", "", "path to a YAML seed file")
	strict := flag.Bool("strict", false, "reject writes into missing containers with 409")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	logger, _, err := logging.Setup(*logLevel)
	if err != nil {
		return err
	}

	opts := []podmock.Option{podmock.WithRoot(*root)}
	if *strict {
		opts = append(opts, podmock.WithStrictContainers())
	}
	store := podmock.New(opts...)
	if *seed != "" {
		s, err := podmock.LoadSeed(*seed)
		if err != nil {
			return err
		}
		if err := store.Apply(s); err != nil {
			return err
		}
	}

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              *addr,
		Handler:           withMiddleware(logger, *latency, failCfg, store.Handler()),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Printf("export %s=http\n", modeEnv)
	fmt.Printf("export %s=http://%s%s\n", podURLEnv, host, store.Root())
	fmt.Println()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("pod-sandbox listening", "addr", *addr, "root", store.Root(), "strict", *strict)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}
	return nil
}

// statusRecorder remembers the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withMiddleware(logger *slog.Logger, delay time.Duration, failCfg failConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if delay > 0 {
			time.Sleep(delay)
		}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			logger.Warn("failure injected", "method", r.Method, "path", r.URL.Path, "status", status)
			http.Error(w, "failure injected", status)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).Round(time.Microsecond))
	})
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	parts := strings.Split(raw, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return failConfig{}, err
			}
			if val < 0 || val > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v out of [0,1]", val)
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return failConfig{}, err
			}
			if val < 400 || val > 599 {
				return failConfig{}, fmt.Errorf("fail code %d is not an error status", val)
			}
			cfg.code = val
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
