package harvest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingLookup struct {
	names map[uint32]string
	calls map[uint32]int
}

func (l *countingLookup) lookup(uid uint32) (string, error) {
	if l.calls == nil {
		l.calls = make(map[uint32]int)
	}
	l.calls[uid]++
	if name, ok := l.names[uid]; ok {
		return name, nil
	}
	return "", errors.New("unknown user")
}

func TestIdentityCache_CachesSuccess(t *testing.T) {
	l := &countingLookup{names: map[uint32]string{0: "root", 1000: "alice"}}
	c := NewIdentityCache(l.lookup, 0)

	assert.Equal(t, "alice", c.Resolve(1000))
	assert.Equal(t, "alice", c.Resolve(1000))
	assert.Equal(t, "root", c.Resolve(0))
	assert.Equal(t, 1, l.calls[1000])
	assert.Equal(t, 2, c.Len())
}

func TestIdentityCache_FailureFallsBack(t *testing.T) {
	l := &countingLookup{}
	c := NewIdentityCache(l.lookup, 0)

	assert.Equal(t, UnknownOwner, c.Resolve(4242))
	assert.Equal(t, UnknownOwner, c.Resolve(4242))
	assert.Equal(t, 2, l.calls[4242], "failures are retried when no retry delay is set")
	assert.Zero(t, c.Len())
}

func TestIdentityCache_RetryAfter(t *testing.T) {
	l := &countingLookup{names: map[uint32]string{}}
	c := NewIdentityCache(l.lookup, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	assert.Equal(t, UnknownOwner, c.Resolve(7))
	assert.Equal(t, UnknownOwner, c.Resolve(7))
	assert.Equal(t, 1, l.calls[7])

	l.names[7] = "late"
	now = now.Add(2 * time.Minute)
	assert.Equal(t, "late", c.Resolve(7))
	assert.Equal(t, 2, l.calls[7])
}

func TestIdentityCache_NilOwnerAndLookup(t *testing.T) {
	c := NewIdentityCache(nil, 0)
	uid := uint32(5)
	assert.Equal(t, UnknownOwner, c.ResolveOwner(nil))
	assert.Equal(t, UnknownOwner, c.ResolveOwner(&uid))
}
