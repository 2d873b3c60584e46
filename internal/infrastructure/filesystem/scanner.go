// Package filesystem はファイルシステム操作を提供します
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"CodeCollect/internal/domain/model"
	"CodeCollect/internal/infrastructure/logging"
)

const DefaultBinaryCheckSize = 1024

// ErrInvalidRoot はルートディレクトリとして使用できないパスが指定されたことを示します
var ErrInvalidRoot = errors.New("無効なルートディレクトリ")

// DirectoryValidator はディレクトリの検証機能を提供するインターフェースです
type DirectoryValidator interface {
	ValidateDirectoryPath(path string) error
}

// FileSystemScanner はファイルシステムのスキャン機能を提供するインターフェースです
type FileSystemScanner interface {
	DirectoryValidator
	Scan(ctx context.Context, rootDir string, filter Filter) ([]model.FileSystemEntry, error)
	IsBinary(content []byte) bool
}

var _ FileSystemScanner = (*Scanner)(nil)

// Scanner はファイルシステムをスキャンするための構造体です
type Scanner struct {
	logger          logging.Logger
	binaryCheckSize int
}

// NewScanner は新しい Scanner インスタンスを作成します
func NewScanner(logger logging.Logger) *Scanner {
	return &Scanner{
		logger:          logger,
		binaryCheckSize: DefaultBinaryCheckSize,
	}
}

// ValidateDirectoryPath はパスが安全で有効なディレクトリであることを確認します
func (s *Scanner) ValidateDirectoryPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: ディレクトリパスが指定されていません", ErrInvalidRoot)
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: ディレクトリが存在しません: %w", ErrInvalidRoot, err)
	}

	if !fileInfo.IsDir() {
		return fmt.Errorf("%w: 指定されたパスはディレクトリではありません: %s", ErrInvalidRoot, path)
	}

	return nil
}

// IsBinary は与えられたバイトデータがバイナリファイルかどうかを判定します
func (s *Scanner) IsBinary(content []byte) bool {
	checkSize := s.binaryCheckSize
	if len(content) < checkSize {
		checkSize = len(content)
	}

	// NULL(0x00)や制御不能文字を検出
	for i := 0; i < checkSize; i++ {
		if content[i] == 0x00 || (content[i] < 0x09 && content[i] != 0x0A && content[i] != 0x0D) {
			return true
		}
	}
	return false
}

// Scan はルート配下を再帰的に走査し、filter に一致するファイルのエントリを
// 走査順に返します。ルート自体のエラーは呼び出し元へ返し、
// 読み取れないサブディレクトリは WARN を出力してスキップします。
// ディレクトリを指すシンボリックリンクは辿らず、対象にも含めません。
func (s *Scanner) Scan(ctx context.Context, rootDir string, filter Filter) ([]model.FileSystemEntry, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("ルートディレクトリの絶対パス取得に失敗しました: %w", err)
	}
	// ルート自体がリンクの場合はリンク先を走査する
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	var entries []model.FileSystemEntry

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			s.logger.Log("WARN", fmt.Sprintf("パス '%s' の走査中にエラー発生", path), err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// リンク切れはファイルとして扱い、読み込み時にエラーとする
			if target, err := os.Stat(path); err == nil && target.IsDir() {
				s.logger.Log("TRACE", fmt.Sprintf("ディレクトリへのリンクのためスキップ: %s", path), nil)
				return nil
			}
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("相対パスの取得に失敗: %s: %w", path, err)
		}

		if !filter.Match(relPath) {
			s.logger.Log("TRACE", fmt.Sprintf("対象外のためスキップ: %s", relPath), nil)
			return nil
		}

		s.logger.Log("DEBUG", fmt.Sprintf("対象ファイルを検出: %s", relPath), nil)
		entries = append(entries, model.NewFileSystemEntry(path, relPath))
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("ファイルシステムの走査に失敗しました: %w", err)
	}

	return entries, nil
}
