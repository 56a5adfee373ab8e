package playback

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestBroadcastScrubIsolatesFailingHandles(t *testing.T) {
	r := NewRegistry("main", zerolog.Nop())

	main := &fakeController{}
	first := &fakeController{}
	broken := &fakeController{failScrub: true}
	third := &fakeController{}

	r.Register("main", main)
	r.Register("cam1", first)
	r.Register("cam2", broken)
	r.Register("cam3", third)

	if n := r.BroadcastScrub(42); n != 3 {
		t.Errorf("BroadcastScrub accepted by %d handles, want 3", n)
	}
	for name, h := range map[string]*fakeController{"main": main, "cam1": first, "cam3": third} {
		if len(h.scrubs) != 1 || h.scrubs[0] != 42 {
			t.Errorf("%s scrubs = %v, want [42]", name, h.scrubs)
		}
	}
}

func TestBroadcastScrubRecoversFromPanics(t *testing.T) {
	r := NewRegistry("main", zerolog.Nop())

	first := &fakeController{}
	panicking := &fakeController{panicScrub: true}
	third := &fakeController{}
	r.Register("a", first)
	r.Register("b", panicking)
	r.Register("c", third)

	if n := r.ScrubPreviews(7); n != 2 {
		t.Errorf("ScrubPreviews accepted by %d handles, want 2", n)
	}
	if len(first.scrubs) != 1 || len(third.scrubs) != 1 {
		t.Errorf("scrubs: first=%v third=%v", first.scrubs, third.scrubs)
	}
}

func TestRegistrySkipsUnreadyAndMissingHandles(t *testing.T) {
	r := NewRegistry("main", zerolog.Nop())

	if r.SeekMain(10, true) {
		t.Error("SeekMain succeeded with no main handle")
	}

	main := &fakeController{notReady: true}
	r.Register("main", main)
	if r.SeekMain(10, true) {
		t.Error("SeekMain succeeded against unready handle")
	}
	if len(main.seeks) != 0 {
		t.Errorf("unready handle received seeks %v", main.seeks)
	}

	main.notReady = false
	if !r.SeekMain(10, true) {
		t.Error("SeekMain failed against ready handle")
	}
}

func TestRegistryRegisterIsLastWriteWins(t *testing.T) {
	r := NewRegistry("main", zerolog.Nop())

	old := &fakeController{}
	fresh := &fakeController{}
	r.Register("cam1", old)
	r.Register("cam1", fresh)

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	if r.Release("cam1", old) {
		t.Error("Release removed a handle that had been replaced")
	}
	r.ScrubPreviews(5)
	if len(old.scrubs) != 0 || len(fresh.scrubs) != 1 {
		t.Errorf("old=%v fresh=%v", old.scrubs, fresh.scrubs)
	}

	if !r.Release("cam1", fresh) {
		t.Error("Release of the current handle failed")
	}
	if r.ScrubPreviews(6) != 0 {
		t.Error("released handle still receives broadcasts")
	}
}

func TestRegistryPreviewsExcludeMain(t *testing.T) {
	r := NewRegistry("b", zerolog.Nop())
	r.Register("c", &fakeController{})
	r.Register("a", &fakeController{})
	r.Register("b", &fakeController{})

	got := r.Previews()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Previews = %v, want [a c]", got)
	}
}

func TestRegistryTellsHandlesAboutMainChanges(t *testing.T) {
	r := NewRegistry("a", zerolog.Nop())
	a := newRoleController()
	b := newRoleController()
	r.Register("a", a)
	r.Register("b", b)
	if !a.main || b.main {
		t.Fatalf("on register: a=%v b=%v", a.main, b.main)
	}

	r.SetMain("b")
	if a.main || !b.main {
		t.Errorf("after SetMain(b): a=%v b=%v", a.main, b.main)
	}

	// a camera that registers after becoming main is told on registration
	r.SetMain("c")
	c := newRoleController()
	r.Register("c", c)
	if !c.main || b.main {
		t.Errorf("after SetMain(c): b=%v c=%v", b.main, c.main)
	}
}
