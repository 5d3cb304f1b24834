package cfsm

import (
	"testing"

	"github.com/mpstkit/mpst"
)

func TestBuildSimplePingPongCFSM(t *testing.T) {
	client := New(mpst.Role{Name: "Client"})
	q0 := client.AddState(0)
	q1 := client.AddState(1)
	q2 := client.AddState(2)
	client.Initial = q0
	client.MarkTerminal(q2)
	client.AddTransition(q0, Symbol{Kind: Send, Peer: mpst.Role{Name: "Server"}, Msg: mpst.Message{Label: "ping"}}, q1)
	client.AddTransition(q1, Symbol{Kind: Recv, Peer: mpst.Role{Name: "Server"}, Msg: mpst.Message{Label: "pong"}}, q2)

	if len(client.States) != 3 {
		t.Fatalf("expected 3 states, got %d", len(client.States))
	}
	out := client.Out(q0)
	if len(out) != 1 || out[0].Sym.Kind != Send {
		t.Fatalf("expected one send transition out of q0, got %v", out)
	}
	if !client.State(q2).Terminal {
		t.Errorf("expected q2 to be terminal")
	}
}

func TestTauSuccessors(t *testing.T) {
	c := New(mpst.Role{Name: "Observer"})
	q0 := c.AddState(0)
	q1 := c.AddState(1)
	q2 := c.AddState(2)
	c.AddTransition(q0, Symbol{Kind: Tau}, q1)
	c.AddTransition(q0, Symbol{Kind: Send, Peer: mpst.Role{Name: "X"}, Msg: mpst.Message{Label: "m"}}, q2)

	taus := c.TauSuccessors(q0)
	if len(taus) != 1 || taus[0] != q1 {
		t.Errorf("expected single tau successor q1, got %v", taus)
	}
}

func TestSymbolEqual(t *testing.T) {
	a := Symbol{Kind: Send, Peer: mpst.Role{Name: "B"}, Msg: mpst.Message{Label: "ok", Payload: &mpst.TypeExpr{Name: "Int"}}}
	b := Symbol{Kind: Send, Peer: mpst.Role{Name: "B"}, Msg: mpst.Message{Label: "ok"}}
	if !a.Equal(b) {
		t.Errorf("expected symbols with matching label to be equal regardless of payload")
	}
	c := Symbol{Kind: Recv, Peer: mpst.Role{Name: "B"}, Msg: mpst.Message{Label: "ok"}}
	if a.Equal(c) {
		t.Errorf("expected send/recv symbols to differ")
	}
}
