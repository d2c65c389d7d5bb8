package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	before := testutil.ToFloat64(FramesTotal)
	FramesTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FramesTotal))

	StageErrors.WithLabelValues("detect").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(StageErrors.WithLabelValues("detect")))

	ObserveStage("pose", 15*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(StageLatency))
}

func TestStartMon(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	port := 59123
	go func() {
		StartMon(port, ctx)
		close(done)
	}()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)
	assert.Contains(t, string(body), "frames_total")
	assert.Contains(t, string(body), "cpu_usage_percent")

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("StartMon did not return after cancel")
	}
}
