package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordResolution(t *testing.T) {
	before := testutil.ToFloat64(Resolutions.WithLabelValues("exact"))
	beforeNone := testutil.ToFloat64(Resolutions.WithLabelValues(NoMatchLabel))

	RecordResolution("exact", time.Microsecond)
	RecordResolution("", time.Microsecond)

	assert.Equal(t, before+1, testutil.ToFloat64(Resolutions.WithLabelValues("exact")))
	assert.Equal(t, beforeNone+1, testutil.ToFloat64(Resolutions.WithLabelValues(NoMatchLabel)))
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues(TierMemory))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues(TierPersistent))

	RecordCacheLookup(TierMemory, true)
	RecordCacheLookup(TierPersistent, false)

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHits.WithLabelValues(TierMemory)))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheMisses.WithLabelValues(TierPersistent)))
}

func TestRecordCatalogLoad(t *testing.T) {
	RecordCatalogLoad(nil, time.Millisecond, 42, 3)
	assert.Equal(t, 42.0, testutil.ToFloat64(CatalogEntries))
	assert.Equal(t, 3.0, testutil.ToFloat64(CatalogDiagnostics))

	errsBefore := testutil.ToFloat64(CatalogLoads.WithLabelValues("error"))
	RecordCatalogLoad(errors.New("unreachable"), time.Millisecond, 0, 0)

	assert.Equal(t, errsBefore+1, testutil.ToFloat64(CatalogLoads.WithLabelValues("error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(CatalogEntries), "a failed load keeps the gauge")
}

func TestMetricsLint(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	require.NoError(t, err)
	for _, p := range problems {
		if !strings.HasPrefix(p.Metric, "exercise_") {
			continue
		}
		t.Errorf("metric %s: %s", p.Metric, p.Text)
	}
}
