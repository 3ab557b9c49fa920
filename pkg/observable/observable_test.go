package observable

import "testing"

func TestSetNotifiesSubscribers(t *testing.T) {
	s := New(1)
	var seen []int
	unsubscribe := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Set(2)
	s.Update(func(v int) int { return v * 10 })
	unsubscribe()
	s.Set(3)

	if s.Get() != 3 {
		t.Fatalf("Get = %d, want 3", s.Get())
	}
	if len(seen) != 2 || seen[0] != 2 || seen[1] != 20 {
		t.Fatalf("seen = %v, want [2 20]", seen)
	}
}

func TestSubscribersRunInOrder(t *testing.T) {
	s := New("")
	var order []string
	s.Subscribe(func(string) { order = append(order, "a") })
	s.Subscribe(func(string) { order = append(order, "b") })

	s.Set("x")

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
}
