// Package dada ties the checker to files on disk: it finds the project
// configuration, loads programs in the YAML interchange format, checks them
// and renders the diagnostics.
package dada

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"github.com/dada-lang/dada-model-sub000/pkg/check"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/ioctx"
)

// CheckError reports that a program loaded but was rejected by the checker.
// The diagnostics have already been rendered by the time it is returned.
type CheckError struct {
	Path        string
	Diagnostics *check.Diagnostics
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, failedCount(len(e.Diagnostics.Decls)))
}

func (e *CheckError) Unwrap() error {
	return e.Diagnostics
}

// LoadFile reads a program in the YAML interchange format.
func LoadFile(path string) (*grammar.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	prog, err := grammar.LoadProgram(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return prog, nil
}

// CheckFile loads and checks the program at path, rendering any diagnostics
// to the context's stdout. With debug set, the loaded program is dumped to
// the context's stderr first.
func CheckFile(ctx context.Context, path string, config *Config, debug bool) error {
	prog, err := LoadFile(path)
	if err != nil {
		return err
	}
	slog.Debug("loaded program", "path", path, "decls", len(prog.Decls))
	if debug {
		_, _ = pretty.Fprintf(ioctx.StderrFromContext(ctx), "%# v\n", prog)
	}

	err = check.CheckProgram(ctx, prog, config.Options())
	if err == nil {
		slog.Debug("program checked", "path", path)
		return nil
	}
	var diags *check.Diagnostics
	if !errors.As(err, &diags) {
		return errors.Wrapf(err, "checking %s", path)
	}

	stdout := ioctx.StdoutFromContext(ctx)
	if err := NewRenderer(stdout, config).Render(stdout, path, diags); err != nil {
		return err
	}
	return &CheckError{Path: path, Diagnostics: diags}
}

// CheckFiles checks every path in order, continuing past rejected programs.
// Files that fail to load stop the run.
func CheckFiles(ctx context.Context, paths []string, config *Config, debug bool) error {
	var failed int
	for _, path := range paths {
		err := CheckFile(ctx, path, config, debug)
		var cerr *CheckError
		switch {
		case err == nil:
		case errors.As(err, &cerr):
			failed++
		default:
			return err
		}
	}
	if failed == 0 {
		return nil
	}
	if len(paths) == 1 {
		return errors.Errorf("%s did not check", paths[0])
	}
	return errors.Errorf("%d of %d files did not check", failed, len(paths))
}

// IsCopy answers whether a value of the given closed type is copied rather
// than moved when given, using the classes declared by the program at path.
func IsCopy(path, ty string) (bool, error) {
	prog, err := LoadFile(path)
	if err != nil {
		return false, err
	}
	t, err := grammar.ParseTy(ty, nil)
	if err != nil {
		return false, errors.Wrap(err, "parsing type")
	}
	return check.IsCopy(prog, t), nil
}

func failedCount(n int) string {
	if n == 1 {
		return "1 declaration failed to check"
	}
	return fmt.Sprintf("%d declarations failed to check", n)
}
