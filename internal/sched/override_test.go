package sched

import (
	"testing"
	"time"
)

func TestOverrideConsumeOnce(t *testing.T) {
	t.Parallel()
	tab := newOverrideTable()
	at := time.Unix(1512000000, 0)

	tab.setSkip("job1", at)
	ov, ok := tab.consume("job1", at)
	if !ok || ov.kind != overrideSkip {
		t.Fatalf("consume = %+v, %v; want skip, true", ov, ok)
	}
	// Destructive: the same anchor yields nothing twice.
	if _, ok := tab.consume("job1", at); ok {
		t.Fatal("override consumed twice")
	}
	if tab.size() != 0 {
		t.Fatalf("size = %d after consume, want 0", tab.size())
	}
}

func TestOverrideNoMatch(t *testing.T) {
	t.Parallel()
	tab := newOverrideTable()
	at := time.Unix(1512000000, 0)
	tab.setSkip("job1", at)

	if _, ok := tab.consume("job1", at.Add(time.Second)); ok {
		t.Fatal("override matched the wrong instant")
	}
	if _, ok := tab.consume("job2", at); ok {
		t.Fatal("override matched the wrong job")
	}
	if tab.size() != 1 {
		t.Fatalf("size = %d, want 1", tab.size())
	}
}

func TestOverrideLastWriteWins(t *testing.T) {
	t.Parallel()
	tab := newOverrideTable()
	at := time.Unix(1512000000, 0)
	until := at.Add(5 * time.Minute)

	tab.setSkip("job1", at)
	tab.setPostpone("job1", at, until)

	ov, ok := tab.consume("job1", at)
	if !ok || ov.kind != overridePostpone || !ov.newTime.Equal(until) {
		t.Fatalf("consume = %+v, %v; want postpone until %v", ov, ok, until)
	}
	if tab.size() != 1 {
		t.Fatalf("size = %d, want 1 armed run", tab.size())
	}
}

func TestPostponeArmsReplacement(t *testing.T) {
	t.Parallel()
	tab := newOverrideTable()
	at := time.Unix(1512000000, 0)
	until := at.Add(300 * time.Second)

	tab.setPostpone("job1", at, until)

	// Observing the anchor consumes the postpone and arms the replacement.
	if _, ok := tab.consume("job1", at); !ok {
		t.Fatal("postpone not consumed at anchor")
	}
	if _, ok := tab.consumeRun("job1", until.Add(-time.Second)); ok {
		t.Fatal("replacement fired early")
	}
	anchor, ok := tab.consumeRun("job1", until)
	if !ok || !anchor.Equal(at) {
		t.Fatalf("consumeRun = %v, %v; want anchor %v", anchor, ok, at)
	}
	// One-shot: a later tick at the same instant finds nothing.
	if _, ok := tab.consumeRun("job1", until); ok {
		t.Fatal("replacement fired twice")
	}
}

func TestPostponeUnobservedAnchor(t *testing.T) {
	t.Parallel()
	tab := newOverrideTable()
	at := time.Unix(1512000000, 0)
	until := at.Add(300 * time.Second)

	// The host never supplies the anchor instant; the replacement must
	// still fire straight off the stored postpone.
	tab.setPostpone("job1", at, until)
	anchor, ok := tab.consumeRun("job1", until)
	if !ok || !anchor.Equal(at) {
		t.Fatalf("consumeRun = %v, %v; want anchor %v", anchor, ok, at)
	}
	if tab.size() != 0 {
		t.Fatalf("size = %d, want 0", tab.size())
	}
}

func TestOverrideDrop(t *testing.T) {
	t.Parallel()
	tab := newOverrideTable()
	at := time.Unix(1512000000, 0)
	until := at.Add(time.Minute)

	tab.setSkip("job1", at)
	tab.setPostpone("job1", at.Add(time.Hour), until)
	tab.setPostpone("job1", at.Add(2*time.Hour), until.Add(time.Hour))
	tab.consume("job1", at.Add(time.Hour)) // arm one replacement
	tab.setSkip("job2", at)

	tab.drop("job1")
	if tab.size() != 1 {
		t.Fatalf("size = %d after drop, want job2's single entry", tab.size())
	}
	if _, ok := tab.consume("job2", at); !ok {
		t.Fatal("unrelated job's override lost")
	}
}

func TestOverrideUnknownJobAccepted(t *testing.T) {
	t.Parallel()
	tab := newOverrideTable()
	// No registry in sight: the table stores overrides for any name.
	tab.setSkip("ghost", time.Unix(1512000000, 0))
	if tab.size() != 1 {
		t.Fatalf("size = %d, want 1", tab.size())
	}
}
