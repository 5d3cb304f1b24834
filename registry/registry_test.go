package registry

import (
	"testing"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfg"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	g := cfg.NewGraph("Auth", []mpst.Role{{Name: "Client"}, {Name: "Server"}})
	r.Register(g)

	got, ok := r.Lookup("Auth")
	if !ok || got != g {
		t.Fatalf("expected to find registered protocol Auth")
	}
	if _, ok := r.Lookup("Missing"); ok {
		t.Errorf("expected Missing to be absent")
	}
}

func TestCallStackPushPop(t *testing.T) {
	s := NewCallStack(2)
	f1 := &Frame{ProtocolName: "A"}
	f2 := &Frame{ProtocolName: "B"}

	if err := s.Push(f1); err != nil {
		t.Fatalf("unexpected push error: %v", err)
	}
	if err := s.Push(f2); err != nil {
		t.Fatalf("unexpected push error: %v", err)
	}
	if s.Current().ProtocolName != "B" {
		t.Errorf("expected current frame B, got %s", s.Current().ProtocolName)
	}
	if err := s.Push(&Frame{ProtocolName: "C"}); err == nil {
		t.Errorf("expected call stack overflow at depth 2")
	}
	popped := s.Pop()
	if popped.ProtocolName != "B" {
		t.Errorf("expected pop to return B, got %s", popped.ProtocolName)
	}
	if s.Depth() != 1 {
		t.Errorf("expected depth 1 after pop, got %d", s.Depth())
	}
}

func TestFrameSubstitute(t *testing.T) {
	f := Frame{RoleMapping: map[string]mpst.Role{"A": {Name: "Alice"}}}
	if got := f.Substitute(mpst.Role{Name: "A"}); got.Name != "Alice" {
		t.Errorf("expected substitution A->Alice, got %s", got.Name)
	}
	if got := f.Substitute(mpst.Role{Name: "B"}); got.Name != "B" {
		t.Errorf("expected unmapped role to pass through unchanged, got %s", got.Name)
	}
}
