package telemetry

import "testing"

func TestScreenIDIsStableAndNonZeroForKnownScreens(t *testing.T) {
	g := DefaultScreenGraph()
	first := g.ScreenID("chats_list_tab")
	if first == 0 {
		t.Fatalf("expected a non-zero id for a known screen")
	}
	if second := g.ScreenID("chats_list_tab"); second != first {
		t.Fatalf("expected ScreenID to be stable across calls, got %d then %d", first, second)
	}
}

func TestScreenIDUnknownScreenIsZero(t *testing.T) {
	g := DefaultScreenGraph()
	if id := g.ScreenID("no_such_screen"); id != 0 {
		t.Fatalf("expected 0 for an unknown screen, got %d", id)
	}
}

func TestNextScreenAlwaysReturnsAGraphNeighbor(t *testing.T) {
	g := DefaultScreenGraph()
	neighbors := screenGraph["chats_list_tab"]

	for i := 0; i < len(neighbors); i++ {
		pick := i
		got := g.NextScreen("chats_list_tab", func(n int) int { return pick % n })
		found := false
		for _, want := range neighbors {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("NextScreen returned %q, not one of %v", got, neighbors)
		}
	}
}

func TestNextScreenFromUnknownScreenFallsBackToChatsList(t *testing.T) {
	g := DefaultScreenGraph()
	got := g.NextScreen("nonexistent", func(n int) int { return 0 })
	if got != "chats_list_tab" {
		t.Fatalf("got %q", got)
	}
}
