// Package filelock は出力ファイルへの同時書き込みを防ぐためのアドバイザリロックを提供します
package filelock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockSuffix はロックファイル名に付与する接尾辞です
const LockSuffix = ".lock"

// ErrLocked は別のプロセスがロックを保持していることを示します
var ErrLocked = errors.New("ロックは別のプロセスが保持しています")

// FileLock は対象ファイルごとのロックファイルを扱います。
// ロックファイルは対象ディレクトリを汚さないよう一時ディレクトリに置き、解放後も削除しません。
type FileLock struct {
	flock *flock.Flock
	path  string
}

// New は target 用のロックを作成します
func New(target string) *FileLock {
	path := lockPath(target)
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// lockPath は target の絶対パスから一時ディレクトリ内のロックファイル名を決めます
func lockPath(target string) string {
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	sum := sha256.Sum256([]byte(target))
	name := "codecollect-" + hex.EncodeToString(sum[:8]) + LockSuffix
	return filepath.Join(os.TempDir(), name)
}

// Path はロックファイルのパスを返します
func (fl *FileLock) Path() string {
	return fl.path
}

// TryLock はブロックせずに排他ロックを取得します。
// 既に他で保持されている場合は ErrLocked を返します。
func (fl *FileLock) TryLock() error {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return fmt.Errorf("ロックの取得に失敗しました: %s: %w", fl.path, err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", ErrLocked, fl.path)
	}
	return nil
}

// Release はロックを解放します
func (fl *FileLock) Release() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("ロックの解放に失敗しました: %s: %w", fl.path, err)
	}
	return nil
}
