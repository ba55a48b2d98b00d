package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

// fakeSource serves a fixed record set under a settable version.
type fakeSource struct {
	mu         sync.Mutex
	version    string
	versionErr error
	loadErr    error
	records    []student.Record

	loads   atomic.Int32
	release chan struct{} // when set, Load blocks until closed
}

func newFakeSource(version string) *fakeSource {
	return &fakeSource{
		version: version,
		records: []student.Record{
			{RegistrationID: "A1", Name: "Ann", CGPA: 9.5},
			{RegistrationID: "A2", Name: "Bob", CGPA: 8.0},
		},
	}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Version(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version, f.versionErr
}

func (f *fakeSource) Load(context.Context) ([]student.Record, error) {
	f.loads.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return student.Clone(f.records), nil
}

func (f *fakeSource) set(fn func(*fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func TestCache_MemoizesByVersion(t *testing.T) {
	src := newFakeSource("v1")
	c := NewCache(src, nil)

	loaded, _ := c.Loaded()
	assert.False(t, loaded)

	t1, err := c.Table(context.Background())
	require.NoError(t, err)
	t2, err := c.Table(context.Background())
	require.NoError(t, err)

	assert.Same(t, t1, t2)
	assert.EqualValues(t, 1, src.loads.Load())
	assert.Equal(t, "v1", t1.Version())
	assert.Equal(t, 1, t1.Records()[0].Rank)

	src.set(func(f *fakeSource) { f.version = "v2" })
	t3, err := c.Table(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, t1, t3)
	assert.Equal(t, "v2", t3.Version())
	assert.EqualValues(t, 2, src.loads.Load())
}

func TestCache_ConcurrentMissesLoadOnce(t *testing.T) {
	src := newFakeSource("v1")
	src.release = make(chan struct{})
	c := NewCache(src, nil)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Table(context.Background())
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, src.loads.Load())
}

func TestCache_LoadErrorPropagates(t *testing.T) {
	src := newFakeSource("v1")
	src.loadErr = errors.New("boom")
	c := NewCache(src, nil)

	_, err := c.Table(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestCache_ServesCachedWhenVersionFails(t *testing.T) {
	src := newFakeSource("v1")
	c := NewCache(src, nil)

	first, err := c.Table(context.Background())
	require.NoError(t, err)

	src.set(func(f *fakeSource) { f.versionErr = errors.New("stat failed") })
	got, err := c.Table(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, got)

	c.Invalidate()
	_, err = c.Table(context.Background())
	assert.Error(t, err)
}

func TestCache_ReloadKeepsPreviousOnFailure(t *testing.T) {
	src := newFakeSource("v1")
	c := NewCache(src, nil)

	first, err := c.Table(context.Background())
	require.NoError(t, err)

	src.set(func(f *fakeSource) { f.loadErr = errors.New("bad row") })
	_, err = c.Reload(context.Background())
	require.Error(t, err)

	got, err := c.Table(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestCache_ReloadForcesLoad(t *testing.T) {
	src := newFakeSource("v1")
	c := NewCache(src, nil)

	_, err := c.Table(context.Background())
	require.NoError(t, err)
	_, err = c.Reload(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, src.loads.Load())
}

func TestCache_UnversionedSourceLoadsOnce(t *testing.T) {
	src := newFakeSource("")
	c := NewCache(src, nil)

	for i := 0; i < 3; i++ {
		_, err := c.Table(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, src.loads.Load())
}

func TestCache_Observer(t *testing.T) {
	var calls []int
	c := NewCache(newFakeSource("v1"), nil, WithLoadObserver(func(_ string, _ time.Duration, n int, err error) {
		require.NoError(t, err)
		calls = append(calls, n)
	}))

	_, err := c.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, calls)
}
