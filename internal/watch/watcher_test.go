package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu      sync.Mutex
	reasons []string
	block   chan struct{}
	err     error
}

func (r *recorder) run(ctx context.Context, reason string) error {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	block := r.block
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reasons) == 0 {
		return ""
	}
	return r.reasons[len(r.reasons)-1]
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New((&recorder{}).run, Options{Schedule: "whenever"})
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestWatcher_RunOnStart(t *testing.T) {
	rec := &recorder{}
	w, err := New(rec.run, Options{RunOnStart: true})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "start", rec.last())
}

func TestWatcher_TriggersCoalesceWhileRunning(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	w, err := New(rec.run, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Trigger("first")
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	w.Trigger("second")
	w.Trigger("third")
	w.Trigger("fourth")

	close(rec.block)
	require.Eventually(t, func() bool { return w.Stats().Runs == 2 }, 2*time.Second, 10*time.Millisecond)
	w.Stop()

	assert.Equal(t, 2, rec.count())
	assert.Equal(t, "second", rec.last())
	assert.Equal(t, 4, w.Stats().Triggers)
}

func TestWatcher_FileChangeTriggersOneRun(t *testing.T) {
	dir := t.TempDir()
	records := filepath.Join(dir, "incidencies.xlsx")
	output := filepath.Join(dir, "informes_word.docx")
	require.NoError(t, os.WriteFile(records, []byte("v1"), 0o644))

	rec := &recorder{}
	w, err := New(rec.run, Options{
		Files:    []string{records},
		Ignore:   []string{output},
		Debounce: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(records, []byte("v2"), 0o644))
	}
	require.Eventually(t, func() bool { return rec.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "change: incidencies.xlsx", rec.last())

	require.NoError(t, os.WriteFile(output, []byte("doc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".informes-tmp-123"), []byte("tmp"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "output, scratch and unrelated files must not trigger")
}

func TestWatcher_DirectoryChange(t *testing.T) {
	photos := t.TempDir()

	rec := &recorder{}
	w, err := New(rec.run, Options{Dirs: []string{photos}, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(photos, "101.jpg"), []byte("jpeg"), 0o644))
	require.Eventually(t, func() bool { return rec.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, w.Stats().Runs)
}

func TestWatcher_FailuresAreRecorded(t *testing.T) {
	rec := &recorder{err: errors.New("records locked")}
	w, err := New(rec.run, Options{RunOnStart: true})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.Eventually(t, func() bool { return w.Stats().Failures == 1 }, 2*time.Second, 10*time.Millisecond)
	w.Stop()
	assert.Equal(t, "records locked", w.Stats().LastError)
}

func TestWatcher_Schedule(t *testing.T) {
	rec := &recorder{}
	w, err := New(rec.run, Options{Schedule: "@every 1s"})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "schedule", rec.last())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New((&recorder{}).run, Options{})
	require.NoError(t, err)
	w.Stop()
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New((&recorder{}).run, Options{Dirs: []string{filepath.Join(t.TempDir(), "absent")}})
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}
