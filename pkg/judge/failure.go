package judge

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind classifies why a derivation failed.
type Kind int

const (
	// ShapeMismatch means a rule did not apply to its input.
	ShapeMismatch Kind = iota
	// UnknownName is an undeclared class, field, method, function or
	// variable. It is fatal within a branch.
	UnknownName
	// PredicateFailure is an unmet copy/owned/leased/... requirement.
	PredicateFailure
	// AccessViolation is an access that conflicts with a live alias, or a use
	// of a moved place.
	AccessViolation
	// SubtypeFailure means no covering permission chain or type was found.
	SubtypeFailure
	// SearchExhausted means the fuel or depth budget ran out, or the search
	// was canceled.
	SearchExhausted
	// Malformed is an ill-formed declaration or expression, such as a wrong
	// number of generic arguments.
	Malformed
)

var kindNames = map[Kind]string{
	ShapeMismatch:    "no match",
	UnknownName:      "unknown name",
	PredicateFailure: "predicate failure",
	AccessViolation:  "access violation",
	SubtypeFailure:   "subtype failure",
	SearchExhausted:  "search exhausted",
	Malformed:        "malformed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fatal kinds stop the search instead of pruning one branch.
func (k Kind) Fatal() bool {
	return k == UnknownName || k == SearchExhausted || k == Malformed
}

// Failure is one node of the tree of attempted derivations. Inner nodes name
// the judgment and the rule that was tried; leaves carry a Kind and Message.
type Failure struct {
	Judgment string
	Input    string
	Rule     string
	Kind     Kind
	Message  string
	Causes   []*Failure
	// Err is an underlying Go error, e.g. context cancellation.
	Err error
}

// Leaf builds a leaf failure.
func Leaf(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Mismatch is a leaf for a rule whose pattern did not match.
func Mismatch(format string, args ...any) *Failure {
	return Leaf(ShapeMismatch, format, args...)
}

// AsFailure converts any error into a Failure. Foreign errors become fatal
// SearchExhausted leaves so that cancellation stops the search.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: SearchExhausted, Message: err.Error(), Err: err}
}

// IsLeaf reports whether the node has no causes.
func (f *Failure) IsLeaf() bool {
	return len(f.Causes) == 0
}

// IsFatal reports whether the failure, or anything beneath it, is fatal.
func (f *Failure) IsFatal() bool {
	if f.IsLeaf() {
		return f.Kind.Fatal()
	}
	return slices.ContainsFunc(f.Causes, (*Failure).IsFatal)
}

// Leaves returns the deepest reasons, left to right.
func (f *Failure) Leaves() []*Failure {
	if f.IsLeaf() {
		return []*Failure{f}
	}
	var leaves []*Failure
	for _, c := range f.Causes {
		leaves = append(leaves, c.Leaves()...)
	}
	return leaves
}

// Kinds returns the distinct leaf kinds, in first-seen order.
func (f *Failure) Kinds() []Kind {
	var kinds []Kind
	for _, l := range f.Leaves() {
		if !slices.Contains(kinds, l.Kind) {
			kinds = append(kinds, l.Kind)
		}
	}
	return kinds
}

// Has reports whether any leaf has the given kind.
func (f *Failure) Has(kind Kind) bool {
	return slices.Contains(f.Kinds(), kind)
}

// Describe renders one line for this node without its causes.
func (f *Failure) Describe() string {
	var parts []string
	if f.Judgment != "" {
		if f.Input != "" {
			parts = append(parts, fmt.Sprintf("%s(%s)", f.Judgment, f.Input))
		} else {
			parts = append(parts, f.Judgment)
		}
	}
	if f.Rule != "" {
		parts = append(parts, fmt.Sprintf("rule %q", f.Rule))
	}
	if f.IsLeaf() {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Kind, f.Message))
	}
	return strings.Join(parts, " ")
}

func (f *Failure) Error() string {
	leaves := f.Leaves()
	if len(leaves) == 1 {
		return leaves[0].Describe()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s failed (%d reasons)", f.Describe(), len(leaves))
	for _, l := range leaves {
		fmt.Fprintf(&sb, "\n  %s", l.Describe())
	}
	return sb.String()
}

func (f *Failure) Unwrap() []error {
	var errs []error
	for _, c := range f.Causes {
		errs = append(errs, c)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// Because wraps cause in a node naming the rule that was attempted.
func Because(rule string, cause error) *Failure {
	return &Failure{Rule: rule, Causes: []*Failure{AsFailure(cause)}}
}
