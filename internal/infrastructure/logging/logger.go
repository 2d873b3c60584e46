// Package logging はロギング機能を提供します
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ログレベルの序列
const (
	levelTrace = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
)

// LogEntry はログエントリを表す構造体です
type LogEntry struct {
	// Timestamp はログが記録された時刻をRFC3339形式で表します
	Timestamp string `json:"timestamp"`
	// Level はログレベル（INFO, WARN, ERROR等）を表します
	Level string `json:"level"`
	// Message はログメッセージの内容を表します
	Message string `json:"message"`
	// Error はエラーが発生した場合のエラーメッセージを表します
	Error string `json:"error,omitempty"`
}

// Logger は構造化ログを出力するためのインターフェースです
type Logger interface {
	Log(level, message string, err error)
}

// JSONLogger はJSONフォーマットでログを出力するロガーです
type JSONLogger struct {
	writer   io.Writer
	minLevel int
	mu       sync.Mutex
}

// NewJSONLogger は新しいJSONLoggerインスタンスを作成します。
// minLevel が空または不正な場合は info 以上を出力します。
func NewJSONLogger(writer io.Writer, minLevel string) *JSONLogger {
	if writer == nil {
		writer = os.Stderr
	}
	return &JSONLogger{writer: writer, minLevel: levelValue(minLevel)}
}

// Log はメッセージをJSONフォーマットでログ出力します
func (l *JSONLogger) Log(level, message string, err error) {
	if levelValue(level) < l.minLevel {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   message,
	}

	if err != nil {
		entry.Error = err.Error()
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ログのJSONエンコードに失敗: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.writer, string(jsonData))
}

// NormalizeLevel はログレベル文字列を小文字に正規化します。
// 不正な値は "info" になります。
func NormalizeLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

func levelValue(level string) int {
	switch NormalizeLevel(level) {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// New は format（"json" または "console"）に応じたロガーを作成します
func New(format string, writer io.Writer, minLevel string) Logger {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return NewJSONLogger(writer, minLevel)
	}
	return NewConsoleLogger(writer, minLevel)
}
