package shutdown

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"skin-obliterator/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ShutdownReverseOrder(t *testing.T) {
	m := NewManager(logger.NewNop())

	var mu sync.Mutex
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		m.Register(Func(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestManager_ComponentTimeout(t *testing.T) {
	m := NewManager(logger.NewNop())
	m.SetTimeout(10 * time.Millisecond)

	block := make(chan struct{})
	defer close(block)
	m.Register(Func(func() { <-block }))

	finished := make(chan struct{})
	go func() {
		m.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not honour the component timeout")
	}
}

func TestManager_SignalCancelsContext(t *testing.T) {
	m := NewManager(logger.NewNop())
	m.Listen()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-m.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
