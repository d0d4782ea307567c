package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/uptcauth/internal/logging"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	rs := &recordingSender{}
	d := NewDispatcher(rs, 3, 16, time.Second, logging.Nop{})
	d.Start(context.Background())

	for i := 0; i < 10; i++ {
		assert.True(t, d.Dispatch(context.Background(), Message{To: "a@uptc.edu.co"}))
	}
	d.Close()
	d.Wait()

	assert.Equal(t, 10, rs.count())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	var logs lockedBuffer
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	blocking := SenderFunc(func(ctx context.Context, m Message) error {
		started <- struct{}{}
		<-release
		return nil
	})

	d := NewDispatcher(blocking, 1, 1, time.Second, logging.NewJSONLogger(&logs, "info"))
	d.Start(context.Background())

	require.True(t, d.Dispatch(context.Background(), Message{To: "first@uptc.edu.co"}))
	<-started // worker is busy with the first message
	require.True(t, d.Dispatch(context.Background(), Message{To: "second@uptc.edu.co"}))
	assert.False(t, d.Dispatch(context.Background(), Message{To: "third@uptc.edu.co"}))

	close(release)
	d.Close()
	d.Wait()

	assert.Contains(t, logs.String(), "mail queue full")
	assert.Contains(t, logs.String(), "third@uptc.edu.co")
}

func TestDispatcher_RejectsAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 1, 4, time.Second, logging.Nop{})
	d.Start(context.Background())
	d.Close()
	d.Close()

	assert.False(t, d.Dispatch(context.Background(), Message{To: "a@uptc.edu.co"}))
	d.Wait()
}

func TestDispatcher_LogsFailures(t *testing.T) {
	var logs lockedBuffer
	rs := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(rs, 1, 4, time.Second, logging.NewJSONLogger(&logs, "info"))
	d.Start(context.Background())

	d.Dispatch(context.Background(), Message{To: "a@uptc.edu.co", Subject: "s"})
	d.Close()
	d.Wait()

	assert.Equal(t, 1, rs.count())
	assert.Contains(t, logs.String(), "smtp down")
}

func TestDispatcher_AppliesTimeout(t *testing.T) {
	var deadlineSet bool
	d := NewDispatcher(SenderFunc(func(ctx context.Context, _ Message) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	}), 1, 1, 50*time.Millisecond, logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel() // cancelling the start context does not abort delivery

	d.Dispatch(context.Background(), Message{To: "a@uptc.edu.co"})
	d.Close()
	d.Wait()

	assert.True(t, deadlineSet)
}
