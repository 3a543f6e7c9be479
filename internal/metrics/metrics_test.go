package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "200"))
	ObserveRequest("GET", 200, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "200")))

	beforeErr := testutil.ToFloat64(RequestsTotal.WithLabelValues("POST", "error"))
	ObserveRequest("POST", 0, time.Millisecond)
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("POST", "error")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 0, StatusOf(nil))
}

func TestWriteTextfile(t *testing.T) {
	ResendTotal.Inc()
	path := filepath.Join(t.TempDir(), "client.prom")

	require.NoError(t, WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "scrapdai_session_resend_total"))
}
