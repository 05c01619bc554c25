package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.BalanceReads.WithLabelValues("bsc", "erc20").Inc()
	m.Transfers.WithLabelValues("bsc", "confirmed").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceReads.WithLabelValues("bsc", "erc20")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transfers.WithLabelValues("bsc", "confirmed")))

	t.Run("independent registries", func(t *testing.T) {
		other := New()
		assert.Equal(t, 0.0, testutil.ToFloat64(other.BalanceReads.WithLabelValues("bsc", "erc20")))
	})

	t.Run("handler serves text format", func(t *testing.T) {
		srv := httptest.NewServer(m.Handler())
		defer srv.Close()

		resp, err := srv.Client().Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "gswap_transfers_total")
	})
}
