package ws

import (
	"encoding/json"
	"sync"
	"testing"
)

func newTestClient(userID uint) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 4)}
}

func TestHub_PushReachesOnlyOwner(t *testing.T) {
	hub := NewPaymentHub()
	hub.Start()
	defer hub.Stop()

	alice := newTestClient(1)
	bob := newTestClient(2)
	if !hub.Register(alice) || !hub.Register(bob) {
		t.Fatal("register failed on a started hub")
	}

	hub.PushToUser(1, map[string]string{"type": "WALLET_FUNDED", "tx_ref": "starktol_1_abc"})

	select {
	case raw := <-alice.Send:
		var msg map[string]string
		if err := json.Unmarshal(raw, &msg); err != nil || msg["type"] != "WALLET_FUNDED" {
			t.Fatalf("payload = %s", raw)
		}
	default:
		t.Fatal("owner received nothing")
	}
	select {
	case raw := <-bob.Send:
		t.Fatalf("wrong user received %s", raw)
	default:
	}
}

func TestHub_SlowConsumerDoesNotBlock(t *testing.T) {
	hub := NewPaymentHub()
	hub.Start()
	defer hub.Stop()

	slow := &Client{UserID: 1, Send: make(chan []byte)} // unbuffered, no reader
	hub.Register(slow)

	done := make(chan struct{})
	go func() {
		hub.PushToUser(1, "ping")
		close(done)
	}()
	<-done // would hang here if the push blocked
}

func TestHub_StopClosesAndRejects(t *testing.T) {
	hub := NewPaymentHub()
	hub.Start()

	c := newTestClient(1)
	hub.Register(c)
	hub.Stop()

	if _, ok := <-c.Send; ok {
		t.Fatal("client channel still open after Stop")
	}
	if hub.Register(newTestClient(2)) {
		t.Fatal("stopped hub accepted a registration")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d after Stop", hub.ClientCount())
	}
}

func TestHub_CloseIsIdempotentAndUnregisters(t *testing.T) {
	hub := NewPaymentHub()
	hub.Start()
	defer hub.Stop()

	c := newTestClient(1)
	hub.Register(c)
	c.Close()
	c.Close() // second close must not panic
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d after client close", hub.ClientCount())
	}

	// Pushing to a closed client is a no-op, not a panic.
	hub.PushToUser(1, "after-close")
}

func TestHub_ConcurrentPushAndClose(t *testing.T) {
	hub := NewPaymentHub()
	hub.Start()
	defer hub.Stop()

	clients := make([]*Client, 8)
	for i := range clients {
		clients[i] = newTestClient(1)
		hub.Register(clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			hub.PushToUser(1, i)
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			c.Close()
		}
	}()
	wg.Wait()
}
