// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/observability"
	"github.com/holomush/accountd/pkg/errutil"
)

type mockObservabilityServer struct {
	metrics  *observability.Metrics
	ready    observability.ReadinessChecker
	startErr error
	started  bool
	stopped  bool
}

func (s *mockObservabilityServer) Start() (<-chan error, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.started = true
	return make(chan error), nil
}

func (s *mockObservabilityServer) Stop(context.Context) error {
	s.stopped = true
	return nil
}

func (s *mockObservabilityServer) Addr() string                    { return "127.0.0.1:0" }
func (s *mockObservabilityServer) Metrics() *observability.Metrics { return s.metrics }
func (s *mockObservabilityServer) SetLogger(*slog.Logger)          {}

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Log.Level = "error"
	cfg.Session.SecureCookie = false
	return &cfg
}

func TestServe_ServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	obs := &mockObservabilityServer{metrics: observability.NewMetrics(prometheus.NewRegistry())}
	deps := &ServeDeps{
		ObservabilityServerFactory: func(_ string, ready observability.ReadinessChecker) ObservabilityServer {
			obs.ready = ready
			return obs
		},
		ListenerFactory: func(string, string) (net.Listener, error) { return ln, nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	done := make(chan error, 1)
	go func() { done <- runServeWithDeps(ctx, memoryConfig(), cmd, deps) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/accounts/current")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusUnauthorized
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/api/accounts/register", "application/json",
		strings.NewReader(`{"accountName":"alice1","password":"password1","confirmPassword":"password1","groupCode":"42"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
	assert.True(t, obs.started)
	assert.True(t, obs.stopped)
	require.NotNil(t, obs.ready)
	assert.True(t, obs.ready())
}

func TestServe_BackendFailure(t *testing.T) {
	deps := &ServeDeps{
		BackendFactory: func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
			return nil, errors.New("connection refused")
		},
	}

	err := runServeWithDeps(context.Background(), memoryConfig(), &cobra.Command{}, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestServe_ObservabilityStartFailure(t *testing.T) {
	obs := &mockObservabilityServer{startErr: errors.New("address in use")}
	deps := &ServeDeps{
		ObservabilityServerFactory: func(string, observability.ReadinessChecker) ObservabilityServer { return obs },
	}

	err := runServeWithDeps(context.Background(), memoryConfig(), &cobra.Command{}, deps)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_START_FAILED")
}

func TestServe_ListenFailure(t *testing.T) {
	cfg := memoryConfig()
	cfg.Metrics.Addr = ""
	deps := &ServeDeps{
		ListenerFactory: func(string, string) (net.Listener, error) {
			return nil, errors.New("permission denied")
		},
	}

	err := runServeWithDeps(context.Background(), cfg, &cobra.Command{}, deps)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "LISTEN_FAILED")
}

func TestOpenBackend_Memory(t *testing.T) {
	b, err := openBackend(context.Background(), memoryConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.Accounts)
	assert.NotNil(t, b.Sessions)
	assert.True(t, b.Ready())
}

func TestOpenBackend_AutoMigrateFailureStopsStartup(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("relation already exists")}
	useFakeMigrator(t, m)

	cfg := config.Default()
	cfg.Storage.DatabaseURL = "postgres://test@localhost/accountd"
	cfg.Storage.AutoMigrate = true

	_, err := openBackend(context.Background(), &cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.True(t, m.closed)
}
