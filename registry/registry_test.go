package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	addr string
}

func (c *fakeConn) Ping() error { return nil }

type pinger interface {
	Ping() error
}

func TestAddAndGet(t *testing.T) {
	r := New()

	require.True(t, Add(r, "default", &fakeConn{addr: "db1"}))
	require.True(t, Add(r, "replica", &fakeConn{addr: "db2"}))

	conn, ok := Get[*fakeConn](r, "default")
	require.True(t, ok)
	assert.Equal(t, "db1", conn.addr)

	conn, ok = Get[*fakeConn](r, "replica")
	require.True(t, ok)
	assert.Equal(t, "db2", conn.addr)

	assert.Equal(t, 2, r.Len())
}

func TestAddDuplicate(t *testing.T) {
	r := New()

	require.True(t, Add(r, "default", &fakeConn{addr: "first"}))
	assert.False(t, Add(r, "default", &fakeConn{addr: "second"}), "Add must not replace")

	conn, ok := Get[*fakeConn](r, "default")
	require.True(t, ok)
	assert.Equal(t, "first", conn.addr)

	err := AddStrict(r, "default", &fakeConn{addr: "third"})
	assert.ErrorIs(t, err, ErrComponentExists)
}

func TestGetMissing(t *testing.T) {
	r := New()

	_, ok := Get[*fakeConn](r, "default")
	assert.False(t, ok)
	assert.False(t, Has[*fakeConn](r, "default"))
}

func TestSameNameDifferentTypes(t *testing.T) {
	r := New()

	require.True(t, Add(r, "default", &fakeConn{addr: "conn"}))
	require.True(t, Add(r, "default", "a string component"))

	conn, ok := Get[*fakeConn](r, "default")
	require.True(t, ok)
	assert.Equal(t, "conn", conn.addr)

	str, ok := Get[string](r, "default")
	require.True(t, ok)
	assert.Equal(t, "a string component", str)
}

func TestGetByInterface(t *testing.T) {
	r := New()
	require.True(t, Add(r, "default", &fakeConn{addr: "db1"}))

	p, ok := Get[pinger](r, "default")
	require.True(t, ok, "an interface lookup finds a concrete component implementing it")
	assert.NoError(t, p.Ping())

	_, ok = Get[pinger](r, "other")
	assert.False(t, ok, "interface fallback still matches on name")
}

func TestMustGet(t *testing.T) {
	r := New()
	require.True(t, Add(r, "default", &fakeConn{addr: "db1"}))

	assert.Equal(t, "db1", MustGet[*fakeConn](r, "default").addr)
	assert.Panics(t, func() { MustGet[*fakeConn](r, "missing") })
}

func TestRemove(t *testing.T) {
	r := New()
	require.True(t, Add(r, "default", &fakeConn{addr: "db1"}))

	assert.True(t, Remove[*fakeConn](r, "default"))
	assert.False(t, Has[*fakeConn](r, "default"))
	assert.False(t, Remove[*fakeConn](r, "default"))

	err := RemoveStrict[*fakeConn](r, "default")
	assert.ErrorIs(t, err, ErrComponentDoesNotExist)

	// Remove then add is the replacement idiom.
	require.True(t, Add(r, "default", &fakeConn{addr: "db2"}))
	conn, ok := Get[*fakeConn](r, "default")
	require.True(t, ok)
	assert.Equal(t, "db2", conn.addr)
}

func TestFactoryRunsOnceOnFirstGet(t *testing.T) {
	r := New()

	var built atomic.Int64
	require.True(t, AddFactory(r, "default", func() *fakeConn {
		built.Add(1)
		return &fakeConn{addr: "lazy"}
	}))
	assert.Equal(t, int64(0), built.Load(), "the factory must not run at registration time")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, ok := Get[*fakeConn](r, "default")
			if !ok || conn.addr != "lazy" {
				t.Errorf("Get returned %v, %v", conn, ok)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), built.Load())
}

func TestNamedRegistries(t *testing.T) {
	name := t.Name()
	t.Cleanup(func() { Delete(name) })

	r := Named(name)
	assert.Same(t, r, Named(name), "Named is stable per name")
	assert.NotSame(t, r, Default())

	require.True(t, Add(r, "default", &fakeConn{addr: "scoped"}))
	_, ok := Get[*fakeConn](Default(), "default")
	assert.False(t, ok, "registries are isolated")

	Delete(name)
	assert.NotSame(t, r, Named(name), "Delete drops the instance")
	Delete(name)
}
