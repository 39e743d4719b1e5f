package ir

import "fmt"

// TargetKind discriminates the Target union.
type TargetKind string

const (
	KindModule   TargetKind = "Module"
	KindQuestion TargetKind = "Question"
)

// IsValid reports whether k is a known target kind.
func (k TargetKind) IsValid() bool {
	switch k {
	case KindModule, KindQuestion:
		return true
	}
	return false
}

// Target references either a Module or a single QuestionBank.
//
// Target is comparable and is used directly as a map key.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

// ModuleTarget returns a Target for the module with the given id.
func ModuleTarget(id string) Target {
	return Target{Kind: KindModule, ID: id}
}

// QuestionTarget returns a Target for the question bank with the given id.
func QuestionTarget(id string) Target {
	return Target{Kind: KindQuestion, ID: id}
}

// String renders the target as "Kind:id".
func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}
