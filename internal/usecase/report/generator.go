// Package report はレポート生成機能を提供します
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"CodeCollect/internal/domain/model"
)

const (
	// OutputFileName はルートディレクトリ直下に作成する出力ファイル名です
	OutputFileName = "_ALL_CODE.txt"
	// Delimiter はブロック同士を区切る記号です
	Delimiter = "**"
)

// blockTrailer はファイル内容の後ろに付与する区切り（空行に挟まれた Delimiter）です
const blockTrailer = "\n\n" + Delimiter + "\n\n"

// Generator はレポート生成機能を提供します
type Generator struct{}

// NewGenerator は新しい Generator インスタンスを作成します
func NewGenerator() *Generator {
	return &Generator{}
}

// OutputPath は出力ファイルのパスを返します。name が空の場合は OutputFileName を使用します。
func (g *Generator) OutputPath(rootDir, name string) string {
	if name == "" {
		name = OutputFileName
	}
	return filepath.Join(rootDir, name)
}

// CreateOutputFile は出力ファイルを作成します。既存のファイルは切り詰められます。
func (g *Generator) CreateOutputFile(outputPath string) (*os.File, error) {
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("出力ファイルの作成に失敗しました: %w", err)
	}
	return outputFile, nil
}

// WriteBlock は1ファイル分のブロック（見出し、内容、区切り）を書き込み、書き込んだバイト数を返します
func (g *Generator) WriteBlock(writer io.Writer, entry model.FileSystemEntry, content []byte) (int64, error) {
	var written int64
	relPath := entry.RelPath

	n, err := io.WriteString(writer, entry.Header()+"\n")
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("見出しの書き込みに失敗しました: %s: %w", relPath, err)
	}

	n, err = writer.Write(content)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("ファイル内容の書き込みに失敗しました: %s: %w", relPath, err)
	}

	n, err = io.WriteString(writer, blockTrailer)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("区切りの書き込みに失敗しました: %s: %w", relPath, err)
	}

	return written, nil
}

// WriteFileList はエントリの深さに応じたインデントを付与し、収集対象のファイルを一覧で出力します
func (g *Generator) WriteFileList(writer io.Writer, entries []model.FileSystemEntry) error {
	for _, entry := range entries {
		indent := strings.Repeat("  ", entry.Depth)
		if _, err := fmt.Fprintf(writer, "%s%s\n", indent, entry.RelPath); err != nil {
			return fmt.Errorf("ファイル一覧の書き込みに失敗しました: %w", err)
		}
	}
	return nil
}
