package broadcast

import "testing"

func TestHubDeliversLatest(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		h.Publish(i)
	}

	if got := <-ch; got != 5 {
		t.Errorf("slow subscriber got %d, want latest 5", got)
	}
	select {
	case v := <-ch:
		t.Errorf("unexpected extra value %d", v)
	default:
	}
}

func TestHubPrimesNewSubscriber(t *testing.T) {
	h := NewHub[string]()
	if _, ok := h.Latest(); ok {
		t.Fatal("Latest on empty hub reported a value")
	}
	h.Publish("connected")

	ch, cancel := h.Subscribe()
	defer cancel()
	if got := <-ch; got != "connected" {
		t.Errorf("primed value = %q", got)
	}
}

func TestHubCancelAndClose(t *testing.T) {
	h := NewHub[int]()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Error("cancelled channel still open")
	}

	h.Publish(1)
	if got := <-b; got != 1 {
		t.Errorf("b got %d", got)
	}

	h.Close()
	if _, ok := <-b; ok {
		t.Error("channel open after Close")
	}
	h.Publish(2)

	c, _ := h.Subscribe()
	if _, ok := <-c; ok {
		t.Error("subscribe after Close returned an open channel")
	}
}
