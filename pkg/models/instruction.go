package models

import "sort"

// BundleComponent is the component name used for development-bundle tests.
// It doubles as the job suffix of bundle jobs.
const BundleComponent = "master"

// TestInstruction asks CI to test one platform minor against one component
// minor. A non-empty Comment renders as a warning line next to the command.
type TestInstruction struct {
	Platform  string
	Component string
	Comment   string
}

// InstructionSet deduplicates identical instructions.
type InstructionSet map[TestInstruction]struct{}

// Add inserts an instruction.
func (s InstructionSet) Add(i TestInstruction) {
	s[i] = struct{}{}
}

// Union adds every instruction of other to s.
func (s InstructionSet) Union(other InstructionSet) {
	for i := range other {
		s[i] = struct{}{}
	}
}

// Contains reports whether i is in the set.
func (s InstructionSet) Contains(i TestInstruction) bool {
	_, ok := s[i]
	return ok
}

// Sorted returns the instructions ordered by platform, component and comment.
func (s InstructionSet) Sorted() []TestInstruction {
	out := make([]TestInstruction, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Platform != out[b].Platform {
			return out[a].Platform < out[b].Platform
		}
		if out[a].Component != out[b].Component {
			return out[a].Component < out[b].Component
		}
		return out[a].Comment < out[b].Comment
	})
	return out
}
