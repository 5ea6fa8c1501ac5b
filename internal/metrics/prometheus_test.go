package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"etsy_importer/internal/domain"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]string{
		0:   "error",
		200: "2xx",
		304: "3xx",
		404: "4xx",
		503: "5xx",
		700: "unknown",
	}
	for code, want := range cases {
		assert.Equal(t, want, classifyStatus(code), "status %d", code)
	}
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(apiRequestsTotal.WithLabelValues("images", "4xx"))

	RecordRequest("images", 404, 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(apiRequestsTotal.WithLabelValues("images", "4xx")))
}

func TestObserveRun(t *testing.T) {
	created := testutil.ToFloat64(syncListingsTotal.WithLabelValues("created"))
	partial := testutil.ToFloat64(syncRunsTotal.WithLabelValues("partial"))
	failed := testutil.ToFloat64(syncRunsTotal.WithLabelValues("failed"))

	ObserveRun(&domain.SyncResult{
		Created:  2,
		Failures: []domain.Failure{{ListingID: "1", Stage: domain.StageMedia, Cause: errors.New("boom")}},
		Duration: time.Second,
	}, nil)
	ObserveRun(nil, errors.New("fetch listings"))

	assert.Equal(t, created+2, testutil.ToFloat64(syncListingsTotal.WithLabelValues("created")))
	assert.Equal(t, partial+1, testutil.ToFloat64(syncRunsTotal.WithLabelValues("partial")))
	assert.Equal(t, failed+1, testutil.ToFloat64(syncRunsTotal.WithLabelValues("failed")))
}
