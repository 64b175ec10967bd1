package dada

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/tree"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"

	"github.com/dada-lang/dada-model-sub000/pkg/check"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	declStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	ruleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	branchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	mismatchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	violationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	fatalStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true)
)

// Renderer prints diagnostics either as the full tree of attempted rules or
// as the distinct leaf reasons of each declaration.
type Renderer struct {
	Color  bool
	Dedupe bool
	// Width truncates every line to this many cells; zero leaves lines
	// alone.
	Width int
}

// NewRenderer configures a renderer for w. Color follows the config when it
// says so and otherwise is used only when w is a terminal.
func NewRenderer(w io.Writer, config *Config) Renderer {
	r := Renderer{Color: isTerminal(w)}
	if config != nil {
		r.Dedupe = config.Output.Dedupe
		r.Width = config.Output.Width
		if config.Output.Color != nil {
			r.Color = *config.Output.Color
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes the report for one file.
func (r Renderer) Render(w io.Writer, path string, diags *check.Diagnostics) error {
	var lines []string
	lines = append(lines, r.style(headerStyle, fmt.Sprintf("%s: %s", path, failedCount(len(diags.Decls)))))
	for _, decl := range diags.Decls {
		lines = append(lines, "")
		if r.Dedupe {
			lines = append(lines, r.leaves(decl)...)
		} else {
			lines = append(lines, r.tree(decl)...)
		}
	}
	for _, line := range lines {
		if r.Width > 0 {
			line = ansi.Truncate(line, r.Width, "…")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (r Renderer) leaves(decl *judge.Failure) []string {
	name := decl.Input
	if name == "" {
		name = decl.Describe()
	}
	lines := []string{r.style(declStyle, name+":")}

	all := decl.Leaves()
	// Mismatches only say that a rule did not apply; keep them when they
	// are all there is.
	informative := all[:0:0]
	for _, l := range all {
		if l.Kind != judge.ShapeMismatch {
			informative = append(informative, l)
		}
	}
	if len(informative) > 0 {
		all = informative
	}

	seen := map[string]bool{}
	for _, l := range all {
		text := leafText(l)
		if seen[text] {
			continue
		}
		seen[text] = true
		lines = append(lines, "  "+r.style(kindStyle(l.Kind), text))
	}
	return lines
}

func (r Renderer) tree(root *judge.Failure) []string {
	t := r.branches(tree.Root(r.style(declStyle, root.Describe())), root)
	if r.Color {
		t = t.EnumeratorStyle(branchStyle.PaddingRight(1)).
			IndenterStyle(branchStyle.PaddingRight(1))
	}
	return strings.Split(t.String(), "\n")
}

func (r Renderer) branches(t *tree.Tree, f *judge.Failure) *tree.Tree {
	for _, c := range visible(f) {
		t.Child(r.branches(tree.Root(r.node(c)), c))
	}
	return t
}

func (r Renderer) node(f *judge.Failure) string {
	if f.IsLeaf() {
		return r.style(kindStyle(f.Kind), f.Describe())
	}
	return r.style(ruleStyle, f.Describe())
}

// visible returns the causes of f, splicing in the causes of any node that
// has nothing of its own to say.
func visible(f *judge.Failure) []*judge.Failure {
	var out []*judge.Failure
	for _, c := range f.Causes {
		if !c.IsLeaf() && c.Describe() == "" {
			out = append(out, visible(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func leafText(l *judge.Failure) string {
	return fmt.Sprintf("%s: %s", l.Kind, l.Message)
}

func kindStyle(k judge.Kind) lipgloss.Style {
	switch {
	case k == judge.ShapeMismatch:
		return mismatchStyle
	case k.Fatal():
		return fatalStyle
	default:
		return violationStyle
	}
}

func (r Renderer) style(s lipgloss.Style, text string) string {
	if !r.Color {
		return text
	}
	return s.Render(text)
}
