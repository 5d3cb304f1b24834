package mpst

import "fmt"

// Role is a named endpoint participating in a protocol. Roles are
// declared in a protocol header and are immutable within a declaration.
type Role struct {
	Name string
}

func (r Role) String() string { return r.Name }

// IsZero reports whether r is the zero Role (no role set).
func (r Role) IsZero() bool { return r.Name == "" }

// TypeExpr is a (possibly parametric) payload type, e.g. Int, List<Int>,
// Map<K,V>, with arbitrary nesting. The analyzer parses these but never
// inspects them for safety purposes; they are not part of branch
// discrimination (see Message.Equal).
type TypeExpr struct {
	Name string
	Args []TypeExpr
}

func (t TypeExpr) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	s := t.Name + "<"
	for i, a := range t.Args {
		if i > 0 {
			s += ","
		}
		s += a.String()
	}
	return s + ">"
}

// Message is a label plus an optional payload type.
type Message struct {
	Label   string
	Payload *TypeExpr // nil if the message carries no payload
}

func (m Message) String() string {
	if m.Payload == nil {
		return m.Label + "()"
	}
	return fmt.Sprintf("%s(%s)", m.Label, m.Payload)
}

// Equal compares messages by label only: two messages are equal iff
// their labels match, regardless of payload.
func (m Message) Equal(other Message) bool {
	return m.Label == other.Label
}

// SourceLocation pinpoints a span of source text. Every AST node and
// every Diagnostic carries an optional SourceLocation; the zero value
// means "no location available".
type SourceLocation struct {
	Line, Column int
	Offset       int
	Length       int
}

// IsZero reports whether no location information is present.
func (s SourceLocation) IsZero() bool { return s.Line == 0 && s.Column == 0 && s.Offset == 0 }

func (s SourceLocation) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Channel is the directed pair (From, To) identifying one FIFO queue
// between a sender and a receiver role.
type Channel struct {
	From, To Role
}

func (c Channel) String() string { return fmt.Sprintf("%s->%s", c.From.Name, c.To.Name) }
