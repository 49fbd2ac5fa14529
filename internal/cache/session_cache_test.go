package cache

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	unmounted atomic.Int32
}

func (f *fakeSession) Unmount() {
	f.unmounted.Add(1)
}

func TestSessionCache_PutGet(t *testing.T) {
	sc := NewSessionCache[*fakeSession](time.Minute)
	s := &fakeSession{}

	sc.Put("a", s)

	got, ok := sc.Get("a")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, sc.Count())

	_, ok = sc.Get("missing")
	assert.False(t, ok)
}

func TestSessionCache_DeleteUnmounts(t *testing.T) {
	sc := NewSessionCache[*fakeSession](time.Minute)
	s := &fakeSession{}
	sc.Put("a", s)

	sc.Delete("a")

	_, ok := sc.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int32(1), s.unmounted.Load())
}

func TestSessionCache_CloseUnmountsAll(t *testing.T) {
	sc := NewSessionCache[*fakeSession](time.Minute)
	a, b := &fakeSession{}, &fakeSession{}
	sc.Put("a", a)
	sc.Put("b", b)

	sc.Close()

	assert.Equal(t, 0, sc.Count())
	assert.Equal(t, int32(1), a.unmounted.Load())
	assert.Equal(t, int32(1), b.unmounted.Load())
}

func TestSessionCache_Expiry(t *testing.T) {
	sc := NewSessionCache[*fakeSession](30 * time.Millisecond)
	s := &fakeSession{}
	sc.Put("a", s)

	// Each hit pushes the expiry forward.
	for i := 0; i < 3; i++ {
		time.Sleep(15 * time.Millisecond)
		_, ok := sc.Get("a")
		require.True(t, ok, "hit %d", i)
	}

	time.Sleep(60 * time.Millisecond)
	_, ok := sc.Get("a")
	assert.False(t, ok)
}
