package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStream struct {
	mu      sync.Mutex
	notices []*Notice
	err     error
	delay   time.Duration
}

func (s *mockStream) Send(n *Notice) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return s.err
}

func (s *mockStream) received() []*Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	m := NewManager()
	id1 := m.Subscribe(&mockStream{})
	id2 := m.Subscribe(&mockStream{})

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Unsubscribe(id1)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_BroadcastAssignsSequence(t *testing.T) {
	m := NewManager()
	s1 := &mockStream{}
	s2 := &mockStream{err: errors.New("closed")}
	m.Subscribe(s1)
	m.Subscribe(s2)

	require.NoError(t, m.Broadcast(&Notice{Title: "first"}))
	require.NoError(t, m.Broadcast(&Notice{Title: "second"}))

	got := s1.received()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].SequenceNo)
	assert.Equal(t, uint64(2), got[1].SequenceNo)
	assert.Len(t, s2.received(), 2, "failing streams still receive attempts")
}

func TestManager_BroadcastSlowSubscriberTimesOut(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 20 * time.Millisecond
	m.Subscribe(&mockStream{delay: 200 * time.Millisecond})
	fast := &mockStream{}
	m.Subscribe(fast)

	start := time.Now()
	require.NoError(t, m.Broadcast(&Notice{Title: "hello"}))

	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Len(t, fast.received(), 1)
}

func TestManager_Notify(t *testing.T) {
	m := NewManager()
	s := &mockStream{}
	m.Subscribe(s)

	m.Notify(LevelWarn, "Song removed", "no longer available")

	assert.Eventually(t, func() bool { return len(s.received()) == 1 }, time.Second, 5*time.Millisecond)
	n := s.received()[0]
	assert.Equal(t, LevelWarn, n.Level)
	assert.Equal(t, "Song removed", n.Title)
	assert.Equal(t, "no longer available", n.Message)
}

func TestManager_SendUnknownSubscription(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Send("missing", &Notice{}))

	s := &mockStream{}
	id := m.Subscribe(s)
	require.NoError(t, m.Send(id, &Notice{Title: "direct"}))
	assert.Len(t, s.received(), 1)
}
