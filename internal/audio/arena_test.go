package audio

import (
	"bytes"
	"testing"
)

func TestArenaWriteWraps(t *testing.T) {
	a := newPCMArena(8)
	a.Write([]byte{1, 2, 3, 4, 5, 6})
	a.Write([]byte{7, 8, 9, 10})

	if a.Cursor() != 2 || a.Written() != 10 {
		t.Fatalf("cursor/written = %d/%d, want 2/10", a.Cursor(), a.Written())
	}

	first, second, err := a.Lock(6, 4)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !bytes.Equal(first, []byte{7, 8}) || !bytes.Equal(second, []byte{9, 10}) {
		t.Errorf("Lock ranges = %v / %v", first, second)
	}
	if err := a.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestArenaOversizedWriteKeepsTail(t *testing.T) {
	a := newPCMArena(4)
	a.Write([]byte{1, 2, 3, 4, 5, 6})

	first, second, err := a.Lock(a.Cursor(), 4)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	got := append(append([]byte(nil), first...), second...)
	if !bytes.Equal(got, []byte{3, 4, 5, 6}) {
		t.Errorf("oldest-first contents = %v, want [3 4 5 6]", got)
	}
	a.Unlock()
}

func TestArenaLockRules(t *testing.T) {
	a := newPCMArena(8)

	if _, _, err := a.Lock(8, 1); err == nil {
		t.Error("Lock past the end succeeded")
	}
	if _, _, err := a.Lock(0, 9); err == nil {
		t.Error("Lock larger than the arena succeeded")
	}
	if err := a.Unlock(); err == nil {
		t.Error("Unlock without Lock succeeded")
	}

	if _, _, err := a.Lock(0, 4); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, _, err := a.Lock(0, 4); err == nil {
		t.Error("second Lock succeeded while held")
	}
	if err := a.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestArenaSkip(t *testing.T) {
	a := newPCMArena(8)
	a.Skip(12)
	if a.Cursor() != 4 || a.Written() != 12 {
		t.Errorf("cursor/written = %d/%d, want 4/12", a.Cursor(), a.Written())
	}
}
