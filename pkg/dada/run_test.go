package dada

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dagger/testctx"
	"github.com/dagger/testctx/oteltest"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/check"
	"github.com/dada-lang/dada-model-sub000/pkg/ioctx"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

func TestMain(m *testing.M) {
	os.Exit(oteltest.Main(m))
}

type RunSuite struct{}

func TestRun(tT *testing.T) {
	testctx.New(tT,
		oteltest.WithTracing[*testing.T](),
		oteltest.WithLogging[*testing.T](),
	).RunTests(RunSuite{})
}

func plainConfig(dedupe bool) *Config {
	color := false
	return &Config{Output: OutputConfig{Dedupe: dedupe, Color: &color}}
}

func captured(ctx context.Context) (context.Context, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	ctx = ioctx.StdoutToContext(ctx, &stdout)
	ctx = ioctx.StderrToContext(ctx, &stderr)
	return ctx, &stdout, &stderr
}

func (RunSuite) TestCheckFileAccepts(ctx context.Context, t *testctx.T) {
	ctx, stdout, stderr := captured(ctx)
	require.NoError(t, CheckFile(ctx, filepath.Join("testdata", "ok.yaml"), nil, false))
	require.Empty(t, stdout.String())
	require.Empty(t, stderr.String())
}

func (RunSuite) TestCheckFileRejects(ctx context.Context, t *testctx.T) {
	ctx, stdout, _ := captured(ctx)
	path := filepath.Join("testdata", "give_twice.yaml")
	err := CheckFile(ctx, path, plainConfig(true), false)

	var cerr *CheckError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, path, cerr.Path)
	require.Equal(t, path+": 1 declaration failed to check", err.Error())

	var diags *check.Diagnostics
	require.True(t, errors.As(err, &diags))
	require.True(t, diags.Has(judge.AccessViolation))

	require.Contains(t, stdout.String(), path+": 1 declaration failed to check\n\nMain:\n")
	require.Contains(t, stdout.String(), "  access violation: foo.i is used after foo.i was moved\n")
}

func (RunSuite) TestCheckFileTree(ctx context.Context, t *testctx.T) {
	ctx, stdout, _ := captured(ctx)
	err := CheckFile(ctx, filepath.Join("testdata", "give_twice.yaml"), plainConfig(false), false)
	require.Error(t, err)
	require.Contains(t, stdout.String(), "\ncheck-class(Main)\n")
	require.Contains(t, stdout.String(), "└── ")
}

func (RunSuite) TestCheckFileDebugDumpsProgram(ctx context.Context, t *testctx.T) {
	ctx, _, stderr := captured(ctx)
	require.NoError(t, CheckFile(ctx, filepath.Join("testdata", "ok.yaml"), nil, true))
	require.Contains(t, stderr.String(), "grammar.Program")
	require.Contains(t, stderr.String(), `Name:`)
}

func (RunSuite) TestCheckFileLoadErrors(ctx context.Context, t *testctx.T) {
	ctx, stdout, _ := captured(ctx)

	err := CheckFile(ctx, filepath.Join("testdata", "malformed.yaml"), nil, false)
	require.ErrorContains(t, err, "loading testdata/malformed.yaml: class Foo: field i:")
	var cerr *CheckError
	require.False(t, errors.As(err, &cerr))

	err = CheckFile(ctx, filepath.Join("testdata", "missing.yaml"), nil, false)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Empty(t, stdout.String())
}

func (RunSuite) TestCheckFiles(ctx context.Context, t *testctx.T) {
	ctx, _, _ = captured(ctx)
	ok := filepath.Join("testdata", "ok.yaml")
	bad := filepath.Join("testdata", "give_twice.yaml")

	require.NoError(t, CheckFiles(ctx, []string{ok}, nil, false))
	require.EqualError(t, CheckFiles(ctx, []string{bad}, nil, false), bad+" did not check")
	require.EqualError(t, CheckFiles(ctx, []string{ok, bad, bad}, nil, false), "2 of 3 files did not check")

	err := CheckFiles(ctx, []string{bad, filepath.Join("testdata", "malformed.yaml"), ok}, nil, false)
	require.ErrorContains(t, err, "loading")
}

func (RunSuite) TestCheckFileBudget(ctx context.Context, t *testctx.T) {
	ctx, stdout, _ := captured(ctx)
	config := plainConfig(true)
	config.Check.Fuel = 3
	err := CheckFile(ctx, filepath.Join("testdata", "ok.yaml"), config, false)
	var diags *check.Diagnostics
	require.True(t, errors.As(err, &diags))
	require.True(t, diags.Has(judge.SearchExhausted))
	require.Contains(t, stdout.String(), "search exhausted")
}

func (RunSuite) TestIsCopy(ctx context.Context, t *testctx.T) {
	path := filepath.Join("testdata", "ok.yaml")
	for ty, want := range map[string]bool{
		"Int":         true,
		"()":          true,
		"Data":        false,
		"Foo":         false,
		"shared Data": true,
	} {
		got, err := IsCopy(path, ty)
		require.NoError(t, err, ty)
		require.Equal(t, want, got, ty)
	}

	_, err := IsCopy(path, "Foo[")
	require.ErrorContains(t, err, "parsing type")
	_, err = IsCopy(filepath.Join("testdata", "missing.yaml"), "Int")
	require.Error(t, err)
}
