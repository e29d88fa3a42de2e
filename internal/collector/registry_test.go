package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCollector struct {
	name      string
	data      interface{}
	err       error
	available bool
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(context.Context) (interface{}, error) { return s.data, s.err }

func (s *stubCollector) IsAvailable() bool { return s.available }

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	assert.True(t, r.Register(&stubCollector{name: "ok", data: 42, available: true}))
	assert.True(t, r.Register(&stubCollector{name: "broken", err: errors.New("boom"), available: true}))
	assert.False(t, r.Register(&stubCollector{name: "absent", data: 1}))
	require.Len(t, r.Collectors(), 2)

	res := r.CollectAll(context.Background())
	assert.Equal(t, map[string]interface{}{"ok": 42}, res.Data)
	require.Contains(t, res.Errors, "broken")
	assert.EqualError(t, res.Errors["broken"], "boom")
	assert.NotContains(t, res.Data, "absent")
}
