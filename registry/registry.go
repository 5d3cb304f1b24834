/*
Package registry resolves `do P(r~)` sub-protocol invocations: it holds
every top-level protocol's CFG (read-only after construction), looked up
by both the projector (package project) and the simulator (package sim),
and provides the shared cross-protocol call stack that the simulator's
Global mode pushes and pops for `do` invocations, per spec §4.6/§4.7.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package registry

import (
	"fmt"

	"github.com/mpstkit/mpst"
	"github.com/mpstkit/mpst/cfg"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mpst.registry")
}

// Registry owns every top-level protocol's CFG and the role list it was
// declared with, and hands out read-only references. Built once from a
// parsed module, then never mutated (spec §3, "a ProtocolRegistry owns
// all global protocols and hands out shared read-only references").
type Registry struct {
	protocols map[string]*cfg.Graph
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{protocols: map[string]*cfg.Graph{}}
}

// Register adds a protocol's built CFG under its declared name. Calling
// Register twice for the same name overwrites the previous entry; callers
// are expected to register each declaration exactly once up front.
func (r *Registry) Register(g *cfg.Graph) {
	r.protocols[g.Protocol] = g
	tracer().Debugf("registered protocol %s (%d nodes)", g.Protocol, len(g.Nodes))
}

// Lookup returns the CFG registered under name, or (nil, false).
func (r *Registry) Lookup(name string) (*cfg.Graph, bool) {
	g, ok := r.protocols[name]
	return g, ok
}

// Frame is one call-stack entry: the sub-protocol being invoked, its
// entry/exit in its own CFG, the role substitution mapping the callee's
// declared parameters to the caller's actual roles, and the callee node
// currently being executed (spec §3, "Call stack (cross-protocol)").
type Frame struct {
	ProtocolName string
	EntryNode    int
	ExitNode     int
	SubCFG       *cfg.Graph
	RoleMapping  map[string]mpst.Role
	CurrentNode  int
}

// Substitute maps a role as declared inside SubCFG to the caller's
// actual role, via RoleMapping.
func (f Frame) Substitute(declared mpst.Role) mpst.Role {
	if actual, ok := f.RoleMapping[declared.Name]; ok {
		return actual
	}
	return declared
}

// ErrCallStackOverflow is returned by Push when maxDepth is exceeded.
type ErrCallStackOverflow struct {
	MaxDepth int
}

func (e *ErrCallStackOverflow) Error() string {
	return fmt.Sprintf("call stack exceeds configured maximum depth %d", e.MaxDepth)
}

// CallStack is the shared, cross-protocol push/pop stack of sub-protocol
// invocations, modeled directly on runtime.MemoryFrameStack's
// Parent-linked top-of-stack pointer (runtime/memframe.go), generalized
// from lexical memory frames to protocol-invocation frames.
type CallStack struct {
	frames   []*Frame
	maxDepth int
}

// NewCallStack creates an empty call stack bounded at maxDepth.
func NewCallStack(maxDepth int) *CallStack {
	return &CallStack{maxDepth: maxDepth}
}

// Depth reports the current number of active frames.
func (s *CallStack) Depth() int { return len(s.frames) }

// Current returns the top-of-stack frame, or nil if the stack is empty.
func (s *CallStack) Current() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Push pushes a new invocation frame. Returns ErrCallStackOverflow
// without mutating the stack when maxDepth would be exceeded (spec §3,
// "exceeding it is a fatal run error").
func (s *CallStack) Push(f *Frame) error {
	if s.maxDepth > 0 && len(s.frames) >= s.maxDepth {
		return &ErrCallStackOverflow{MaxDepth: s.maxDepth}
	}
	s.frames = append(s.frames, f)
	tracer().Debugf("call stack push %s (depth %d)", f.ProtocolName, len(s.frames))
	return nil
}

// Pop removes and returns the top-of-stack frame, or nil if empty.
func (s *CallStack) Pop() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	tracer().Debugf("call stack pop %s (depth %d)", f.ProtocolName, len(s.frames))
	return f
}
