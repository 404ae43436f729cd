package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveQuery(t *testing.T) {
	before := testutil.ToFloat64(queriesTotal.WithLabelValues("success", "semantic"))

	ObserveQuery("success", "semantic", 120*time.Millisecond)

	after := testutil.ToFloat64(queriesTotal.WithLabelValues("success", "semantic"))
	assert.Equal(t, before+1, after)
}

func TestIncrementValidationRejection(t *testing.T) {
	before := testutil.ToFloat64(validationRejectionsTotal.WithLabelValues("DANGEROUS_COMMAND"))

	IncrementValidationRejection("DANGEROUS_COMMAND")

	after := testutil.ToFloat64(validationRejectionsTotal.WithLabelValues("DANGEROUS_COMMAND"))
	assert.Equal(t, before+1, after)
}

func TestSetCacheEntries(t *testing.T) {
	SetCacheEntries("semantic", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(cacheEntries.WithLabelValues("semantic")))

	SetCacheEntries("semantic", -3)
	assert.Equal(t, 0.0, testutil.ToFloat64(cacheEntries.WithLabelValues("semantic")))
}
