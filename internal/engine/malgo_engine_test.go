package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/gen2brain/malgo"
)

func TestMalgoChannelClaimIsSingleShot(t *testing.T) {
	ch := &malgoChannel{}
	device := new(malgo.Device)

	ch.mu.Lock()
	ch.device = device
	ch.mu.Unlock()

	if !ch.claim(device) {
		t.Fatal("first claim must win")
	}
	if ch.claim(device) {
		t.Error("second claim of the same device must lose")
	}
}

func TestMalgoChannelClaimRejectsStaleDevice(t *testing.T) {
	ch := &malgoChannel{}
	current := new(malgo.Device)
	stale := new(malgo.Device)

	ch.mu.Lock()
	ch.device = current
	ch.mu.Unlock()

	if ch.claim(stale) {
		t.Error("claim for a device the channel no longer holds must lose")
	}
	if !ch.claim(current) {
		t.Error("current device must still be claimable")
	}
}

func TestMalgoChannelClaimConcurrentSingleWinner(t *testing.T) {
	// Completion and Stop race for the same device; exactly one may tear
	// it down.
	ch := &malgoChannel{}
	device := new(malgo.Device)

	ch.mu.Lock()
	ch.device = device
	ch.mu.Unlock()

	const contenders = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ch.claim(device) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}
}

func TestMalgoChannelStopWithoutDeviceIsNoop(t *testing.T) {
	ch := &malgoChannel{}

	if err := ch.Stop(); err != nil {
		t.Errorf("Stop with no live device must be a no-op, got %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("Close with no live device must be a no-op, got %v", err)
	}
}

func TestMalgoEngineClosedLifecycle(t *testing.T) {
	// Close before Start never touches a real audio context
	eng := NewMalgoEngine(Options{})

	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if eng.Running() {
		t.Error("closed engine must not report running")
	}
	if err := eng.Start(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("expected ErrEngineClosed from Start, got %v", err)
	}
	if err := eng.Reset(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("expected ErrEngineClosed from Reset, got %v", err)
	}
	if _, err := eng.NewChannel(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("expected ErrEngineClosed from NewChannel, got %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("second Close must be a no-op, got %v", err)
	}
}
