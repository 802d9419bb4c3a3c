package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu    sync.Mutex
	lines []string
	query string
}

func (f *fakeInflux) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.query = r.URL.RawQuery
		for _, l := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if l != "" {
				f.lines = append(f.lines, l)
			}
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "yenshow",
		Bucket:        "ba-console",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false
	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectIncompleteConfig(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Bucket = ""
	if _, err := Connect(cfg); !errors.Is(err, ErrIncompleteConfig) {
		t.Errorf("Connect() error = %v, want ErrIncompleteConfig", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := Connect(testConfig(url)); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheckAfterClose(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	client.Close()
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v", err)
	}
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteModbusSample(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client.WriteModbusSample("plc-1", "coils", 4, []float64{1, 0}, at)
	client.Flush()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.lines) != 2 {
		t.Fatalf("lines = %q", fake.lines)
	}
	if st := client.Stats(); st.Points != 2 || st.Failures != 0 {
		t.Errorf("Stats() = %+v", st)
	}
	if !strings.Contains(fake.query, "bucket=ba-console") || !strings.Contains(fake.query, "org=yenshow") {
		t.Errorf("query = %q", fake.query)
	}
	want := "modbus_point,address=4,device_id=plc-1,space=coils value=1 "
	if !strings.HasPrefix(fake.lines[0], want) {
		t.Errorf("line[0] = %q, want prefix %q", fake.lines[0], want)
	}
}

func TestModbusPointsStopAtAddressSpaceEnd(t *testing.T) {
	at := time.Unix(0, 0)
	points := modbusPoints("d", "holding-registers", 0xFFFE, []float64{1, 2, 3}, at)
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	line := write.PointToLineProtocol(points[1], time.Second)
	if !strings.Contains(line, "address=65535") {
		t.Errorf("line = %q", line)
	}
}

func TestWriteWhenDisconnectedIsNoop(t *testing.T) {
	c := &Client{}
	c.WriteModbusSample("d", "coils", 0, []float64{1}, time.Now())
}
