package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	workerPkg "delivery-metrics/internal/infra/worker"
	"delivery-metrics/internal/observability/metrics"
)

func testConfig() *workerPkg.SamplerConfig {
	cfg := workerPkg.DefaultConfig()
	cfg.MetricsHost = "127.0.0.1"
	cfg.MetricsPort = 0
	return &cfg
}

func newTestApplication(t *testing.T, cfg *workerPkg.SamplerConfig) (*application, *workerPkg.SamplerMetrics) {
	t.Helper()
	registry := metrics.NewRegistry()
	samplerMetrics := workerPkg.NewSamplerMetrics(registry)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := newApplication(logger, "test-run", cfg, registry, samplerMetrics)
	require.NoError(t, err)
	return app, samplerMetrics
}

// runApplication starts app and returns the base URL of its metrics endpoint.
func runApplication(t *testing.T, app *application) string {
	t.Helper()
	addrCh := make(chan net.Addr, 1)
	app.onListen = func(addr net.Addr) { addrCh <- addr }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("application did not stop")
		}
	})

	select {
	case addr := <-addrCh:
		return "http://" + addr.String()
	case err := <-done:
		t.Fatalf("application exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics endpoint was not bound")
	}
	return ""
}

// scrape fetches url and returns the unlabelled samples of the exposition.
func scrape(t *testing.T, url string) map[string]float64 {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	values := make(map[string]float64)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "{") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		require.NoError(t, err, line)
		values[fields[0]] = v
	}
	require.NoError(t, scanner.Err())
	return values
}

func TestApplication_ServesSamples(t *testing.T) {
	app, _ := newTestApplication(t, testConfig())
	base := runApplication(t, app)

	var values map[string]float64
	require.Eventually(t, func() bool {
		values = scrape(t, base+"/metrics")
		return values["average_delivery_time_seconds_count"] >= 1
	}, 3*time.Second, 50*time.Millisecond)

	pending := values["pending_deliveries"]
	onTheWay := values["on_the_way_deliveries"]
	total := values["total_deliveries"]
	delivered := total - pending - onTheWay

	assert.GreaterOrEqual(t, pending, 10.0)
	assert.LessOrEqual(t, pending, 20.0)
	assert.GreaterOrEqual(t, onTheWay, 5.0)
	assert.LessOrEqual(t, onTheWay, 20.0)
	assert.GreaterOrEqual(t, delivered, 30.0)
	assert.LessOrEqual(t, delivered, 70.0)

	count := values["average_delivery_time_seconds_count"]
	sum := values["average_delivery_time_seconds_sum"]
	assert.GreaterOrEqual(t, sum, 15.0*count)
	assert.LessOrEqual(t, sum, 45.0*count)

	assert.Contains(t, values, "go_goroutines")
}

func TestApplication_AnyPathServesExposition(t *testing.T) {
	app, _ := newTestApplication(t, testConfig())
	base := runApplication(t, app)

	for _, path := range []string{"/", "/metrics", "/anything/else"} {
		values := scrape(t, base+path)
		assert.Contains(t, values, "total_deliveries", path)
	}
}

func TestApplication_SummaryCountGrowsEachInterval(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for several sampling intervals")
	}
	app, samplerMetrics := newTestApplication(t, testConfig())
	base := runApplication(t, app)

	require.Eventually(t, func() bool {
		return scrape(t, base)["average_delivery_time_seconds_count"] >= 3
	}, 6*time.Second, 100*time.Millisecond)

	assert.GreaterOrEqual(t, testutil.ToFloat64(samplerMetrics.CyclesTotal), 3.0)
}

func TestApplication_BusyPortFailsBeforeSampling(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()

	cfg := testConfig()
	cfg.MetricsPort = busy.Addr().(*net.TCPAddr).Port

	app, samplerMetrics := newTestApplication(t, cfg)

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind metrics endpoint")
	assert.Zero(t, testutil.ToFloat64(samplerMetrics.CyclesTotal))
}

func TestApplication_HighPendingMode(t *testing.T) {
	cfg := testConfig()
	cfg.HighPendingMode = true

	app, samplerMetrics := newTestApplication(t, cfg)
	assert.Equal(t, 1.0, testutil.ToFloat64(samplerMetrics.HighPendingMode))

	app.runCycle(context.Background())

	snap, err := app.delivery.Snapshot()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snap.Pending, 50.0)
	assert.LessOrEqual(t, snap.Pending, 100.0)
}

func TestApplication_ProfileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pending: {min: 7, max: 7}\nhigh_pending_mode: false\n"), 0o600))

	cfg := testConfig()
	cfg.HighPendingMode = true
	cfg.ProfilePath = path

	app, samplerMetrics := newTestApplication(t, cfg)
	assert.Equal(t, 0.0, testutil.ToFloat64(samplerMetrics.HighPendingMode), "profile file overrides the env flag")

	app.runCycle(context.Background())
	snap, err := app.delivery.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 7.0, snap.Pending)
}

func TestApplication_ProfileHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	cfg := testConfig()
	cfg.ProfilePath = path

	app, samplerMetrics := newTestApplication(t, cfg)
	runApplication(t, app)

	require.NoError(t, os.WriteFile(path, []byte("high_pending_mode: true\n"), 0o600))

	require.Eventually(t, func() bool {
		return app.service.Profile().HighPendingMode
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(samplerMetrics.HighPendingMode))
}

func TestNewApplication_InvalidProfileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("delivered: {min: 9, max: 1}\n"), 0o600))

	cfg := testConfig()
	cfg.ProfilePath = path

	registry := metrics.NewRegistry()
	_, err := newApplication(slog.Default(), "test-run", cfg, registry, workerPkg.NewSamplerMetrics(registry))
	assert.Error(t, err)
}

func TestApplication_HealthReadyAfterFirstCycle(t *testing.T) {
	cfg := testConfig()
	cfg.HealthEnabled = true

	app, _ := newTestApplication(t, cfg)
	require.NotNil(t, app.health)
	assert.False(t, app.health.Ready())

	app.runCycle(context.Background())
	assert.True(t, app.health.Ready())
}

func TestStartScheduler_RunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 10)

	done := make(chan struct{})
	go func() {
		startScheduler(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second, func(context.Context) {
			runs <- struct{}{}
		})
		close(done)
	}()

	select {
	case <-runs:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("first run was not immediate")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestFixedDelay_Next(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 900_000_000, time.UTC)

	for _, interval := range []time.Duration{time.Second, 1500 * time.Millisecond, time.Hour} {
		assert.Equal(t, start.Add(interval), fixedDelay{interval: interval}.Next(start), interval)
	}
}

func TestStartScheduler_GapBetweenRunsIsOneInterval(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for several sampling intervals")
	}
	const interval = 1500 * time.Millisecond

	// Start just before a wall-clock second boundary, where whole-second
	// schedules would fire almost immediately after the first run.
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second - 100*time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan time.Time, 10)
	done := make(chan struct{})
	go func() {
		startScheduler(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), interval, func(context.Context) {
			runs <- time.Now()
		})
		close(done)
	}()

	var stamps []time.Time
	for len(stamps) < 3 {
		select {
		case ts := <-runs:
			stamps = append(stamps, ts)
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d runs recorded", len(stamps))
		}
	}
	cancel()
	<-done

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, interval, "gap %d", i)
		assert.Less(t, gap, interval+500*time.Millisecond, "gap %d", i)
	}
}
