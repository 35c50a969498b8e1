package notification

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu    sync.Mutex
	msgs  []Message
	err   error
	block chan struct{}
}

func (f *fakeStream) Send(msg *Message) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, *msg)
	return nil
}

func (f *fakeStream) received() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.msgs...)
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager(nil)
	a, b := &fakeStream{}, &fakeStream{}
	m.Subscribe(a)
	m.Subscribe(b)
	require.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&Message{Type: TypeShow, Payload: "x"})
	m.Broadcast(&Message{Type: TypeEmpty})

	for _, s := range []*fakeStream{a, b} {
		msgs := s.received()
		require.Len(t, msgs, 2)
		assert.Equal(t, TypeShow, msgs[0].Type)
		assert.Equal(t, uint64(1), msgs[0].SequenceNo)
		assert.Equal(t, uint64(2), msgs[1].SequenceNo)
	}
}

func TestManager_FailingSubscriberIsDropped(t *testing.T) {
	m := NewManager(nil)
	good := &fakeStream{}
	bad := &fakeStream{err: errors.New("broken pipe")}
	m.Subscribe(good)
	m.Subscribe(bad)

	m.Broadcast(&Message{Type: TypeStatus})

	assert.Equal(t, 1, m.SubscriberCount())
	assert.Len(t, good.received(), 1)
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager(nil)
	slow := &fakeStream{block: make(chan struct{})}
	defer close(slow.block)
	fast := &fakeStream{}
	m.Subscribe(slow)
	m.Subscribe(fast)

	start := time.Now()
	m.Broadcast(&Message{Type: TypeKiosk})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, fast.received(), 1)
	assert.Equal(t, 2, m.SubscriberCount(), "a timeout keeps the subscriber")
}

func TestManager_SendAndUnsubscribe(t *testing.T) {
	m := NewManager(nil)
	s := &fakeStream{}
	id := m.Subscribe(s)

	require.NoError(t, m.Send(id, &Message{Type: TypeDisplay}))
	require.NoError(t, m.Send("unknown", &Message{Type: TypeDisplay}))
	assert.Len(t, s.received(), 1)

	m.Unsubscribe(id)
	m.Unsubscribe(id)
	assert.Zero(t, m.SubscriberCount())

	m.Subscribe(s)
	m.Close()
	assert.Zero(t, m.SubscriberCount())
}
