package parse

import (
	"testing"

	"github.com/mpstkit/mpst/ast"
	"github.com/mpstkit/mpst/diag"
	"github.com/mpstkit/mpst/lex"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// TestParseRoundTripIsStable exercises Testable Property P1 (spec §8):
// re-lexing and re-parsing ast.Print's output must yield an AST
// isomorphic to the one that produced it. Comparing ASTs directly would
// have to ignore source locations (Print doesn't reproduce them), so
// this instead checks that Print is a fixed point once composed with
// Parse: printing twice from two independent parses of the same
// underlying protocol must agree on the second printing, whatever the
// first looked like textually (formatting, comments, whitespace).
func TestParseRoundTripIsStable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.parse")
	defer teardown()

	src := `
protocol Commit(role Coordinator, role P1, role P2) {
	rec Retry {
		par {
			Coordinator -> P1: prepare();
			P1 -> Coordinator: vote1();
		} and {
			Coordinator -> P2, P2: prepare();
		}
		choice at Coordinator {
			Coordinator -> P1, P2: commit();
		} or {
			Coordinator -> P1, P2: abort();
			continue Retry;
		}
	}
}
`
	m1, diags := Parse("round1.mpst", src)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected parse errors: %v", diags)
	}
	printed1 := ast.Print(m1)

	m2, diags := Parse("round2.mpst", printed1)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected parse errors re-parsing printed output: %v\n--- printed ---\n%s", diags, printed1)
	}
	printed2 := ast.Print(m2)

	if printed1 != printed2 {
		t.Errorf("Print is not a fixed point after one Parse/Print round trip:\n--- first ---\n%s\n--- second ---\n%s", printed1, printed2)
	}

	m3, diags := Parse("round3.mpst", printed2)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected parse errors on third parse: %v", diags)
	}
	if printed3 := ast.Print(m3); printed3 != printed2 {
		t.Errorf("Print/Parse did not converge after two rounds:\n--- second ---\n%s\n--- third ---\n%s", printed2, printed3)
	}
}

// TestParseAfterStripCommentsMatchesLexerOwnSkipping confirms
// lex.StripComments's textual pre-pass is interchangeable with the
// lexer's own comment-skipping rule (spec §4.1): parsing a
// comment-bearing source directly, and parsing lex.StripComments's
// output of the same source, must print identically.
func TestParseAfterStripCommentsMatchesLexerOwnSkipping(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mpst.parse")
	defer teardown()

	src := `
// top of file
protocol PingPong(role Client, role Server) { // inline note
	Client -> Server: ping(); // send
	Server -> Client: pong();
	// trailing
}
`
	withComments, diags := Parse("with-comments.mpst", src)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected parse errors: %v", diags)
	}

	stripped, diags := Parse("stripped.mpst", lex.StripComments(src))
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected parse errors on stripped source: %v", diags)
	}

	if got, want := ast.Print(stripped), ast.Print(withComments); got != want {
		t.Errorf("parsing lex.StripComments's output diverged from parsing the commented source directly:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
