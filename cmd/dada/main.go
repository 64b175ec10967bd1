package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dada-lang/dada-model-sub000/pkg/dada"
	"github.com/dada-lang/dada-model-sub000/pkg/ioctx"
)

// Config holds the flags shared by every subcommand.
type Config struct {
	Debug      bool
	ConfigFile string
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "dada",
		Short: "Permission checker for Dada programs",
		Long: `dada checks that programs respect the ownership and aliasing rules of
their permissions. Programs are read in the YAML interchange format.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cfg.Debug)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging and dump loaded programs")
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Path to dada.toml (default: search upward from the working directory)")

	rootCmd.AddCommand(checkCmd(&cfg))
	rootCmd.AddCommand(copyCmd())

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the file named by --config, or else the nearest dada.toml
// above the working directory. A missing file yields the zero config.
func loadConfig(cfg *Config) (*dada.Config, error) {
	if cfg.ConfigFile != "" {
		return dada.LoadProjectConfig(cfg.ConfigFile)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, config, err := dada.FindProjectConfig(cwd)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return &dada.Config{}, nil
	}
	slog.Debug("using project config", "path", path)
	return config, nil
}

func checkCmd(cfg *Config) *cobra.Command {
	var (
		dedupe  bool
		tree    bool
		noColor bool
		width   int
		workers int
		fuel    int
	)

	cmd := &cobra.Command{
		Use:   "check [flags] FILE...",
		Short: "Check programs",
		Long: `Check every declaration of each program.

Rejected declarations are reported with the tree of rules that were
attempted. Use --dedupe to print only the distinct reasons instead.`,
		Example: `  # Check a program
  dada check program.yaml

  # Print one line per distinct reason
  dada check --dedupe program.yaml

  # Check with a smaller search budget
  dada check --fuel 10000 a.yaml b.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cfg)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			switch {
			case flags.Changed("dedupe"):
				config.Output.Dedupe = dedupe
			case flags.Changed("tree"):
				config.Output.Dedupe = !tree
			}
			if noColor {
				off := false
				config.Output.Color = &off
			}
			if flags.Changed("width") {
				config.Output.Width = width
			}
			if flags.Changed("workers") {
				config.Check.Workers = workers
			}
			if flags.Changed("fuel") {
				config.Check.Fuel = fuel
			}

			return dada.CheckFiles(cmd.Context(), args, config, cfg.Debug)
		},
	}

	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "Print only the distinct leaf reasons")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the full tree of attempted rules")
	cmd.MarkFlagsMutuallyExclusive("dedupe", "tree")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().IntVar(&width, "width", 0, "Truncate diagnostic lines to this many columns")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of declarations checked at once")
	cmd.Flags().IntVar(&fuel, "fuel", 0, "Number of judgment steps allowed per declaration")

	return cmd
}

func copyCmd() *cobra.Command {
	var program string

	cmd := &cobra.Command{
		Use:   "copy TYPE --program FILE",
		Short: "Report whether values of a type are copied when given",
		Example: `  dada copy 'shared Data' --program program.yaml
  dada copy 'Pair[Int, Int]' --program program.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isCopy, err := dada.IsCopy(program, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ioctx.StdoutFromContext(cmd.Context()), isCopy)
			return err
		},
	}

	cmd.Flags().StringVar(&program, "program", "", "Program declaring the classes the type mentions")
	_ = cmd.MarkFlagRequired("program")

	return cmd
}
