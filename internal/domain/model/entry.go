// package model はドメインモデルを定義します
package model

import (
	"os"
	"strings"
)

// FileSystemEntry は収集対象として検出されたファイルを表します
type FileSystemEntry struct {
	// Path はファイルの絶対パスを表します
	Path string
	// RelPath はルートディレクトリからの相対パスを表します（OSのパス区切り文字を使用）
	RelPath string
	// Depth はルートディレクトリからの深さを表します
	Depth int
}

// NewFileSystemEntry は絶対パスと相対パスからエントリを作成します
func NewFileSystemEntry(path, relPath string) FileSystemEntry {
	return FileSystemEntry{
		Path:    path,
		RelPath: relPath,
		Depth:   strings.Count(relPath, string(os.PathSeparator)),
	}
}

// Header は出力ブロックの見出し行（末尾の改行を除く）を返します
func (e FileSystemEntry) Header() string {
	return e.RelPath + ":"
}
