package driver

import (
	"github.com/opal-lang/ischeme/core/invariant"
)

// ScopeStack is the stack of options blocks mirroring the lexical nesting of
// the script. The first block pushed is the main block and stays at the
// bottom for the whole run.
type ScopeStack struct {
	blocks []*OptionsBlock
}

// Push creates a block named name and makes it the top of the stack.
func (s *ScopeStack) Push(name string) *OptionsBlock {
	b := NewOptionsBlock(name)
	s.blocks = append(s.blocks, b)
	return b
}

// Top returns the innermost block.
func (s *ScopeStack) Top() *OptionsBlock {
	invariant.Precondition(len(s.blocks) > 0, "options block stack is empty")
	return s.blocks[len(s.blocks)-1]
}

// Main returns the bottom block.
func (s *ScopeStack) Main() *OptionsBlock {
	invariant.Precondition(len(s.blocks) > 0, "options block stack is empty")
	return s.blocks[0]
}

// Depth returns the number of blocks on the stack.
func (s *ScopeStack) Depth() int {
	return len(s.blocks)
}

// Register appends opt to the top block.
func (s *ScopeStack) Register(opt Option) {
	s.Top().Append(opt)
}

// Pop removes and returns the top block. The main block cannot be popped.
func (s *ScopeStack) Pop() *OptionsBlock {
	invariant.Precondition(len(s.blocks) > 1, "cannot pop the main options block")
	top := s.blocks[len(s.blocks)-1]
	s.blocks[len(s.blocks)-1] = nil
	s.blocks = s.blocks[:len(s.blocks)-1]
	return top
}

// PopMergingInto pops the top block and merges it into every target.
func (s *ScopeStack) PopMergingInto(targets ...*OptionsBlock) *OptionsBlock {
	top := s.Pop()
	for _, t := range targets {
		invariant.NotNil(t, "merge target")
		t.MergeFrom(top)
	}
	return top
}

// Names returns the block names from bottom to top.
func (s *ScopeStack) Names() []string {
	names := make([]string, len(s.blocks))
	for i, b := range s.blocks {
		names[i] = b.Name()
	}
	return names
}
