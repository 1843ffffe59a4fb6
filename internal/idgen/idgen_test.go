package idgen

import (
	"testing"

	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

func TestRandomGeneratorInRange(t *testing.T) {
	g := RandomGenerator{}
	used := map[wampmsg.ID]bool{}
	for i := 0; i < 1000; i++ {
		id := g.Next(func(id wampmsg.ID) bool { return used[id] })
		if !id.InRange() {
			t.Fatalf("generated id out of range: %d", id)
		}
		if used[id] {
			t.Fatalf("generated duplicate id: %d", id)
		}
		used[id] = true
	}
}

func TestRandomGeneratorAvoidsCollision(t *testing.T) {
	g := RandomGenerator{}
	taken := wampmsg.ID(5)
	calls := 0
	id := g.Next(func(candidate wampmsg.ID) bool {
		calls++
		if calls == 1 {
			return true // force a collision on the first draw
		}
		return candidate == taken
	})
	if id == taken {
		t.Fatalf("generator returned a collided id")
	}
	if calls < 2 {
		t.Fatalf("expected generator to retry after a collision, only called %d times", calls)
	}
}

func TestMonotonicGeneratorStartsAtOne(t *testing.T) {
	g := NewMonotonicGenerator()
	used := func(wampmsg.ID) bool { return false }
	if id := g.Next(used); id != 1 {
		t.Fatalf("expected first id to be 1, got %d", id)
	}
	if id := g.Next(used); id != 2 {
		t.Fatalf("expected second id to be 2, got %d", id)
	}
}

func TestMonotonicGeneratorSkipsUsed(t *testing.T) {
	g := NewMonotonicGenerator()
	used := map[wampmsg.ID]bool{1: true, 2: true}
	id := g.Next(func(id wampmsg.ID) bool { return used[id] })
	if id != 3 {
		t.Fatalf("expected generator to skip used ids and return 3, got %d", id)
	}
}
