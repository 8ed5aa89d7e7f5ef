package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/boardsync/internal/models"
)

// sendRecorder потокобезопасно собирает отправленные payload-ы
type sendRecorder struct {
	mu    sync.Mutex
	sends []models.ObjectUpdate
	keys  []string
	err   error
}

func (r *sendRecorder) send(ctx context.Context, key string, payload models.ObjectUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	r.sends = append(r.sends, payload)
	return r.err
}

func (r *sendRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends)
}

func (r *sendRecorder) last() models.ObjectUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sends[len(r.sends)-1]
}

func TestSchedule_CoalescesBurstIntoOneSend(t *testing.T) {
	rec := &sendRecorder{}
	c := NewCoalescer(20*time.Millisecond, models.ObjectUpdate.Merge, rec.send)
	defer c.Close()

	// 10 обновлений одного ключа внутри окна
	for i := 0; i < 10; i++ {
		c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(float64(i))})
	}
	c.Schedule("obj-1", models.ObjectUpdate{Color: models.StringPtr("#112233")})

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	// Последний payload выигрывает по полям, ранние незатертые поля доживают
	sent := rec.last()
	assert.Equal(t, 9.0, *sent.X)
	assert.Equal(t, "#112233", *sent.Color)

	// Ничего больше не уходит
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.False(t, c.Pending("obj-1"))
}

func TestSchedule_SeparateKeysSendSeparately(t *testing.T) {
	rec := &sendRecorder{}
	c := NewCoalescer(10*time.Millisecond, models.ObjectUpdate.Merge, rec.send)
	defer c.Close()

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(1)})
	c.Schedule("obj-2", models.ObjectUpdate{X: models.Float64Ptr(2)})

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCancel_DiscardsPendingWithoutSending(t *testing.T) {
	rec := &sendRecorder{}
	c := NewCoalescer(20*time.Millisecond, models.ObjectUpdate.Merge, rec.send)
	defer c.Close()

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(1)})
	c.Cancel("obj-1")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.False(t, c.Pending("obj-1"))
}

func TestFlush_SendsImmediately(t *testing.T) {
	rec := &sendRecorder{}
	// Широкое окно: без flush отправка не успела бы
	c := NewCoalescer(10*time.Second, models.ObjectUpdate.Merge, rec.send)
	defer c.Close()

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(5)})

	require.NoError(t, c.Flush(context.Background(), "obj-1"))
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 5.0, *rec.last().X)
}

func TestFlush_ReturnsSendError(t *testing.T) {
	rec := &sendRecorder{err: errors.New("store down")}
	c := NewCoalescer(10*time.Second, models.ObjectUpdate.Merge, rec.send)
	defer c.Close()

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(5)})

	err := c.Flush(context.Background(), "obj-1")
	assert.ErrorContains(t, err, "store down")
}

func TestFlush_UnknownKeyIsNoop(t *testing.T) {
	rec := &sendRecorder{}
	c := NewCoalescer(10*time.Millisecond, models.ObjectUpdate.Merge, rec.send)
	defer c.Close()

	require.NoError(t, c.Flush(context.Background(), "never-scheduled"))
	assert.Equal(t, 0, rec.count())
}

func TestFlush_WaitsForInflight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var sends int

	send := func(ctx context.Context, key string, payload models.ObjectUpdate) error {
		close(started)
		<-release
		mu.Lock()
		sends++
		mu.Unlock()
		return nil
	}

	c := NewCoalescer(time.Millisecond, models.ObjectUpdate.Merge, send)
	defer c.Close()

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(1)})
	<-started

	flushDone := make(chan error, 1)
	go func() { flushDone <- c.Flush(context.Background(), "obj-1") }()

	select {
	case <-flushDone:
		t.Fatal("flush returned before in-flight send completed")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-flushDone)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, sends)
}

func TestOnSendError_FiresWithPayload(t *testing.T) {
	rec := &sendRecorder{err: errors.New("write failed")}
	c := NewCoalescer(5*time.Millisecond, models.ObjectUpdate.Merge, rec.send)
	defer c.Close()

	type failure struct {
		key     string
		payload models.ObjectUpdate
		err     error
	}
	failures := make(chan failure, 1)
	c.OnSendError(func(key string, payload models.ObjectUpdate, err error) {
		failures <- failure{key: key, payload: payload, err: err}
	})

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(7)})

	select {
	case f := <-failures:
		assert.Equal(t, "obj-1", f.key)
		assert.Equal(t, 7.0, *f.payload.X)
		assert.ErrorContains(t, f.err, "write failed")
	case <-time.After(time.Second):
		t.Fatal("error handler was not called")
	}
}

func TestSchedule_DuringInflightQueuesNextWindow(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once

	rec := &sendRecorder{}
	send := func(ctx context.Context, key string, payload models.ObjectUpdate) error {
		once.Do(func() { <-release })
		return rec.send(ctx, key, payload)
	}

	c := NewCoalescer(5*time.Millisecond, models.ObjectUpdate.Merge, send)
	defer c.Close()

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(1)})

	// Пока первая отправка висит, копим вторую порцию
	time.Sleep(20 * time.Millisecond)
	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(2)})
	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(3)})

	close(release)

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, *rec.sends[0].X)
	assert.Equal(t, 3.0, *rec.sends[1].X)
}

func TestClose_DropsPending(t *testing.T) {
	rec := &sendRecorder{}
	c := NewCoalescer(20*time.Millisecond, models.ObjectUpdate.Merge, rec.send)

	c.Schedule("obj-1", models.ObjectUpdate{X: models.Float64Ptr(1)})
	c.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	// Schedule после Close игнорируется
	c.Schedule("obj-2", models.ObjectUpdate{X: models.Float64Ptr(2)})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}
