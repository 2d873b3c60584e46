// Package cmd はコマンドラインインターフェースを提供します
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"CodeCollect/internal/config"
	"CodeCollect/internal/infrastructure/filesystem"
	"CodeCollect/internal/infrastructure/logging"
	"CodeCollect/internal/usecase/collect"
	"CodeCollect/internal/usecase/report"
)

// Version はビルド時に -ldflags で埋め込まれます
var Version = "dev"

type rootFlags struct {
	includeJS  bool
	configPath string
	sort       bool
	skipBinary bool
	dryRun     bool
	logLevel   string
	logFormat  string
}

// NewRootCommand はルートコマンドを作成します
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "codecollect <directory>",
		Short: "Collect all .vue (and optionally .js) files into a single text file",
		Long: `Collect all .vue (and optionally .js) files in a project and copy their
content into <directory>/_ALL_CODE.txt.

Each file is written as its path relative to <directory>, followed by a colon,
its raw content and a "**" separator line.`,
		Args:    cobra.ExactArgs(1),
		Version: Version,
		// エラーは main で出力する
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.includeJS, "include-js", false, "Include .js files in addition to .vue files")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file (default <directory>/"+config.DefaultFileName+")")
	cmd.Flags().BoolVar(&flags.sort, "sort", false, "Write files in lexical order of their relative path")
	cmd.Flags().BoolVar(&flags.skipBinary, "skip-binary", false, "Skip matched files that look binary")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List matched files without writing the output file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "console", "Log format (console, json)")

	return cmd
}

func run(cmd *cobra.Command, rootDir string, flags *rootFlags) error {
	cfg, err := loadConfig(rootDir, flags.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("sort") {
		cfg.Sort = flags.sort
	}
	if cmd.Flags().Changed("skip-binary") {
		cfg.SkipBinary = flags.skipBinary
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logger := logging.New(flags.logFormat, cmd.ErrOrStderr(), cfg.LogLevel)
	collector := collect.NewCollector(filesystem.NewScanner(logger), report.NewGenerator(), logger)

	opts := collect.OptionsFromConfig(cfg, flags.includeJS)
	opts.DryRun = flags.dryRun
	opts.ListWriter = cmd.OutOrStdout()

	result, err := collector.Collect(cmd.Context(), rootDir, opts)
	if err != nil {
		return err
	}

	if !flags.dryRun {
		printSummary(cmd.OutOrStdout(), result)
	}
	return nil
}

// loadConfig は --config 指定があればそのファイルを、なければルート直下の設定ファイルを読み込みます
func loadConfig(rootDir, path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromRoot(rootDir)
	}
	return config.LoadConfig(path)
}

func printSummary(w io.Writer, result collect.Result) {
	fmt.Fprintf(w, "Collected %d files into %s\n", len(result.Files), result.OutputPath)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d binary files\n", len(result.Skipped))
	}
}
