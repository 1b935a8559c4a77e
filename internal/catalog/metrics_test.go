package catalog

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedStore_CountsByResult(t *testing.T) {
	mem, err := NewMemStore()
	require.NoError(t, err)
	s := WithMetrics(mem, prometheus.NewRegistry())
	ctx := context.Background()

	_, err = s.Add(ctx, validProduct("C1"))
	require.NoError(t, err)
	_, err = s.Add(ctx, Product{})
	require.Error(t, err)
	_, _, err = s.Get(ctx, 1)
	require.NoError(t, err)
	_, _, err = s.Get(ctx, 2)
	require.NoError(t, err)
	require.ErrorIs(t, s.Remove(ctx, 2), ErrNotFound)

	count := func(op, result string) float64 {
		return testutil.ToFloat64(s.ops.WithLabelValues(op, result))
	}
	assert.Equal(t, 1.0, count("add", resultOK))
	assert.Equal(t, 1.0, count("add", resultInvalid))
	assert.Equal(t, 1.0, count("get", resultOK))
	assert.Equal(t, 1.0, count("get", resultNotFound))
	assert.Equal(t, 1.0, count("remove", resultNotFound))
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, resultOK, resultLabel(nil))
	assert.Equal(t, resultNotFound, resultLabel(notFound(3)))
	assert.Equal(t, resultInvalid, resultLabel(&ValidationError{}))
	assert.Equal(t, resultError, resultLabel(&StoreError{Op: OpRead, Err: context.Canceled}))
}
