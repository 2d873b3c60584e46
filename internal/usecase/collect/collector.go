// Package collect はディレクトリ配下のソースファイルを1つのテキストファイルへ連結する処理を提供します
package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"CodeCollect/internal/config"
	"CodeCollect/internal/domain/model"
	"CodeCollect/internal/infrastructure/filelock"
	"CodeCollect/internal/infrastructure/filesystem"
	"CodeCollect/internal/infrastructure/logging"
	"CodeCollect/internal/usecase/report"
)

// ErrOutputLocked は同じ出力ファイルへ別の実行が書き込み中であることを示します
var ErrOutputLocked = filelock.ErrLocked

// Options は1回の収集処理の設定です
type Options struct {
	// IncludeSecondary が true の場合、副拡張子のファイルも収集します
	IncludeSecondary bool
	// PrimaryExtensions は常に収集する拡張子です
	PrimaryExtensions []string
	// SecondaryExtensions は IncludeSecondary 指定時に追加で収集する拡張子です
	SecondaryExtensions []string
	// OutputName は出力ファイル名です。空の場合は report.OutputFileName です。
	OutputName string
	// Sort が true の場合、相対パスの辞書順で出力します
	Sort bool
	// SkipBinary が true の場合、バイナリと判定したファイルを出力しません
	SkipBinary bool
	// DryRun が true の場合、出力ファイルを作成せず対象ファイルの一覧を ListWriter へ出力します
	DryRun bool
	// ListWriter は DryRun 時の出力先です。nil の場合は os.Stdout です。
	ListWriter io.Writer
}

// OptionsFromConfig は設定ファイルの内容から Options を作成します
func OptionsFromConfig(cfg *config.Config, includeSecondary bool) Options {
	return Options{
		IncludeSecondary:    includeSecondary,
		PrimaryExtensions:   cfg.PrimaryExtensions,
		SecondaryExtensions: cfg.SecondaryExtensions,
		OutputName:          cfg.OutputName,
		Sort:                cfg.Sort,
		SkipBinary:          cfg.SkipBinary,
	}
}

// Result は収集処理の結果です
type Result struct {
	// OutputPath は出力ファイルのパスです。DryRun の場合も作成予定のパスが入ります。
	OutputPath string
	// Files は出力した（DryRun では対象となる）ファイルの相対パスです
	Files []string
	// Skipped はバイナリと判定して除外したファイルの相対パスです
	Skipped []string
	// Bytes は出力ファイルへ書き込んだバイト数です
	Bytes int64
}

// Collector はスキャナーとレポートジェネレーターを組み合わせて収集処理を行います
type Collector struct {
	scanner   filesystem.FileSystemScanner
	generator *report.Generator
	logger    logging.Logger
}

// NewCollector は新しい Collector インスタンスを作成します
func NewCollector(scanner filesystem.FileSystemScanner, generator *report.Generator, logger logging.Logger) *Collector {
	return &Collector{
		scanner:   scanner,
		generator: generator,
		logger:    logger,
	}
}

// Collect は rootDir 配下の対象ファイルを <rootDir>/<OutputName> へ連結します。
// ルートが不正な場合は出力ファイルを作成せずにエラーを返します。
// 途中でエラーが発生した場合、それまでに書き込んだ内容は残ります。
func (c *Collector) Collect(ctx context.Context, rootDir string, opts Options) (result Result, err error) {
	if err := c.scanner.ValidateDirectoryPath(rootDir); err != nil {
		return result, err
	}

	outputPath := c.generator.OutputPath(rootDir, opts.OutputName)
	result.OutputPath = outputPath

	primary := opts.PrimaryExtensions
	if len(primary) == 0 {
		primary = config.DefaultConfig().PrimaryExtensions
	}
	secondary := opts.SecondaryExtensions
	if secondary == nil {
		secondary = config.DefaultConfig().SecondaryExtensions
	}

	// 前回の出力ファイル自身を取り込まない
	filter := filesystem.NewExcludeFilter(
		filesystem.NewExtensionFilter(primary, secondary, opts.IncludeSecondary),
		filepath.Base(outputPath),
	)

	entries, err := c.scanner.Scan(ctx, rootDir, filter)
	if err != nil {
		return result, err
	}
	c.logger.Log("INFO", fmt.Sprintf("対象ファイルを %d 件検出しました", len(entries)), nil)

	if opts.Sort {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].RelPath < entries[j].RelPath
		})
	}

	if opts.DryRun {
		return c.list(entries, opts, result)
	}

	lock := filelock.New(outputPath)
	if err := lock.TryLock(); err != nil {
		return result, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			c.logger.Log("WARN", "ロックの解放に失敗しました", releaseErr)
		}
	}()

	outputFile, err := c.generator.CreateOutputFile(outputPath)
	if err != nil {
		return result, err
	}
	defer func() {
		if closeErr := outputFile.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("出力ファイルのクローズに失敗しました: %w", closeErr)
		}
	}()
	c.logger.Log("DEBUG", fmt.Sprintf("出力ファイルを作成しました: %s", outputPath), nil)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		written, skipped, err := c.writeEntry(outputFile, entry, opts)
		result.Bytes += written
		if err != nil {
			return result, err
		}
		if skipped {
			result.Skipped = append(result.Skipped, entry.RelPath)
			continue
		}
		result.Files = append(result.Files, entry.RelPath)
	}

	c.logger.Log("INFO", fmt.Sprintf("%d 件のファイルを出力しました: %s", len(result.Files), outputPath), nil)
	return result, nil
}

// writeEntry は1ファイルを読み込んでブロックとして書き込みます
func (c *Collector) writeEntry(w io.Writer, entry model.FileSystemEntry, opts Options) (int64, bool, error) {
	content, err := os.ReadFile(entry.Path)
	if err != nil {
		return 0, false, fmt.Errorf("ファイルの読み込みに失敗しました: %s: %w", entry.RelPath, err)
	}

	if opts.SkipBinary && c.scanner.IsBinary(content) {
		c.logger.Log("WARN", fmt.Sprintf("バイナリファイルのためスキップ: %s", entry.RelPath), nil)
		return 0, true, nil
	}

	written, err := c.generator.WriteBlock(w, entry, content)
	if err != nil {
		return written, false, err
	}
	c.logger.Log("DEBUG", fmt.Sprintf("書き込みました: %s (%d bytes)", entry.RelPath, len(content)), nil)
	return written, false, nil
}

func (c *Collector) list(entries []model.FileSystemEntry, opts Options, result Result) (Result, error) {
	w := opts.ListWriter
	if w == nil {
		w = os.Stdout
	}
	if err := c.generator.WriteFileList(w, entries); err != nil {
		return result, err
	}
	for _, entry := range entries {
		result.Files = append(result.Files, entry.RelPath)
	}
	return result, nil
}

// IsOutputLocked は err が出力ファイルのロック競合によるものかを判定します
func IsOutputLocked(err error) bool {
	return errors.Is(err, ErrOutputLocked)
}
