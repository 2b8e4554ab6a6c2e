package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fv-go/internal/fv"
)

func newTestSlot(t *testing.T, name string) *Slot {
	t.Helper()
	s, err := NewSlot(name)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestSubmit_ReturnsResult(t *testing.T) {
	s := newTestSlot(t, "query")

	task, err := Submit(s, func() (int, error) { return 42, nil })
	require.NoError(t, err)

	v, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.False(t, s.Busy())
}

func TestSubmit_PropagatesError(t *testing.T) {
	s := newTestSlot(t, "query")
	boom := errors.New("boom")

	task, err := Submit(s, func() (string, error) { return "", boom })
	require.NoError(t, err)

	_, err = task.Wait()
	assert.ErrorIs(t, err, boom)
}

func TestSubmit_BusyWhileRunning(t *testing.T) {
	s := newTestSlot(t, "import")
	release := make(chan struct{})
	started := make(chan struct{})

	first, err := Submit(s, func() (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	require.NoError(t, err)
	<-started

	assert.True(t, s.Busy())
	_, err = Submit(s, func() (int, error) { return 2, nil })
	assert.ErrorIs(t, err, fv.ErrBusy)

	close(release)
	v, err := first.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// The slot is free again as soon as the first task has finished.
	second, err := Submit(s, func() (int, error) { return 3, nil })
	require.NoError(t, err)
	v, err = second.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestSubmit_SlotsAreIndependent(t *testing.T) {
	imports := newTestSlot(t, "import")
	downloads := newTestSlot(t, "download")
	release := make(chan struct{})

	blocked, err := Submit(imports, func() (int, error) {
		<-release
		return 0, nil
	})
	require.NoError(t, err)

	task, err := Submit(downloads, func() (int, error) { return 7, nil })
	require.NoError(t, err, "a busy import slot must not block downloads")
	v, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	close(release)
	_, err = blocked.Wait()
	assert.NoError(t, err)
}

func TestSubmit_PanicBecomesError(t *testing.T) {
	s := newTestSlot(t, "query")

	task, err := Submit(s, func() (int, error) { panic("bad") })
	require.NoError(t, err)

	_, err = task.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.False(t, s.Busy())
}
