package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func TestCollector_RecordOperation(t *testing.T) {
	c := NewCollector("metrics-test")

	c.RecordOperation("create", nil, 10*time.Millisecond)
	c.RecordOperation("create", errors.New(errors.ErrorTypeAlreadyExists, "dup"), time.Millisecond)

	assert.Equal(t, int64(2), c.Count("create"))
	assert.Equal(t, int64(1), c.Failures("create"))
	assert.Equal(t, 1.0, testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics-test", "create", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics-test", "create", StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(OperationErrors.WithLabelValues("metrics-test", "create", "already_exists")))

	all := c.GetAll()
	assert.Equal(t, "metrics-test", all["component"])
	assert.Equal(t, map[string]string{"create": "already_exists: dup"}, all["last_errors"])
}

func TestCollector_RecordHealth(t *testing.T) {
	c := NewCollector("health-test")

	c.RecordHealth(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(ConnectorHealth.WithLabelValues("health-test")))
	c.RecordHealth(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(ConnectorHealth.WithLabelValues("health-test")))
}
