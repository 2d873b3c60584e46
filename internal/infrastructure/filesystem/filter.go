package filesystem

import (
	"path/filepath"
	"strings"
)

// Filter は走査中のファイルを収集対象とするかを判定します
type Filter interface {
	// Match はルートからの相対パスを受け取り、対象であれば true を返します
	Match(relPath string) bool
}

// ExtensionFilter はファイル名の末尾（拡張子）で判定するフィルタです。
// 大文字小文字は区別します。
type ExtensionFilter struct {
	Suffixes []string
}

// NewExtensionFilter は主拡張子と、includeSecondary が true の場合は副拡張子も
// 対象とするフィルタを作成します
func NewExtensionFilter(primary, secondary []string, includeSecondary bool) ExtensionFilter {
	suffixes := append([]string{}, primary...)
	if includeSecondary {
		suffixes = append(suffixes, secondary...)
	}
	return ExtensionFilter{Suffixes: suffixes}
}

// Match はファイル名がいずれかの拡張子で終わるかを判定します
func (f ExtensionFilter) Match(relPath string) bool {
	name := filepath.Base(relPath)
	for _, suffix := range f.Suffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ExcludeFilter は指定した相対パスを除外したうえで Inner に判定を委ねます
type ExcludeFilter struct {
	Inner    Filter
	Excluded map[string]bool
}

// NewExcludeFilter は新しい ExcludeFilter を作成します
func NewExcludeFilter(inner Filter, excluded ...string) ExcludeFilter {
	m := make(map[string]bool, len(excluded))
	for _, p := range excluded {
		m[filepath.Clean(p)] = true
	}
	return ExcludeFilter{Inner: inner, Excluded: m}
}

// Match は除外対象でなく、かつ Inner が一致と判定した場合に true を返します
func (f ExcludeFilter) Match(relPath string) bool {
	if f.Excluded[filepath.Clean(relPath)] {
		return false
	}
	return f.Inner.Match(relPath)
}
