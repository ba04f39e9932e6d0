package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyMutex_SerializesSameKey(t *testing.T) {
	km := New()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("alice")
			counter++
			km.Unlock("alice")
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
}

func TestKeyMutex_IndependentKeys(t *testing.T) {
	km := New()
	km.Lock("alice")

	done := make(chan struct{})
	go func() {
		km.Lock("bob")
		km.Unlock("bob")
		close(done)
	}()

	<-done // must not deadlock while "alice" is held
	km.Unlock("alice")
}
