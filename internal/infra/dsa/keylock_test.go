package dsa

import (
	"sync"
	"testing"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	var counter int
	var wg sync.WaitGroup
	const workers = 50

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("acc-1")
			counter++ // protected solely by the keyed mutex
			km.Unlock("acc-1")
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("acc-1")
	done := make(chan struct{})
	go func() {
		km.Lock("acc-2") // must not block on acc-1's lock
		km.Unlock("acc-2")
		close(done)
	}()
	<-done
	km.Unlock("acc-1")

	if got := km.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}
