package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ServesMetrics(t *testing.T) {
	s := NewServer("127.0.0.1:0", "")
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	TicksTotal.Inc()
	CapturesTotal.WithLabelValues("eth0", OutcomeSuccess).Inc()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "netmon_ticks_total")
	assert.Contains(t, string(body), `netmon_captures_total{interface="eth0",outcome="success"}`)
}

func TestServer_ListenError(t *testing.T) {
	first := NewServer("127.0.0.1:0", "/m")
	require.NoError(t, first.Start(context.Background()))
	defer first.Stop(context.Background())

	second := NewServer(first.Addr(), "/m")
	assert.Error(t, second.Start(context.Background()))
}

func TestServer_StopBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer(":0", "").Stop(context.Background()))
}
