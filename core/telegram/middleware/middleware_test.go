package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSerializerOrdersOverlappingUnits(t *testing.T) {
	s := NewChatSerializer()

	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})
	secondDone := make(chan struct{})

	go func() {
		_ = s.Run(7, func() error {
			close(started)
			<-release
			record("first.end")
			return nil
		})
		close(firstDone)
	}()

	<-started
	go func() {
		_ = s.Run(7, func() error {
			record("second.start")
			return nil
		})
		close(secondDone)
	}()

	// The second unit must wait for the first to finish.
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-firstDone
	<-secondDone

	require.Equal(t, []string{"first.end", "second.start"}, events)
}

func TestChatSerializerLinearHistoryUnderContention(t *testing.T) {
	s := NewChatSerializer()

	var active int32
	var peak int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Run(1, func() error {
				n := atomic.AddInt32(&active, 1)
				if n > atomic.LoadInt32(&peak) {
					atomic.StoreInt32(&peak, n)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak, "units for the same chat ran concurrently")
}

func TestChatSerializerDistinctChatsDoNotBlock(t *testing.T) {
	s := NewChatSerializer()

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Run(1, func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	done := make(chan struct{})
	go func() {
		_ = s.Run(2, func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unit for a different chat blocked behind chat 1")
	}
	close(release)
}
