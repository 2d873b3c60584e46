package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ConsoleLogger は "[HH:MM:SS] [LEVEL] message" 形式で人間向けのログを出力します。
// 端末への出力時のみレベルを色付けします。
type ConsoleLogger struct {
	writer      io.Writer
	minLevel    int
	colorOutput bool
	mu          sync.Mutex
}

// NewConsoleLogger は新しい ConsoleLogger を作成します
func NewConsoleLogger(writer io.Writer, minLevel string) *ConsoleLogger {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleLogger{
		writer:      writer,
		minLevel:    levelValue(minLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal は writer が色表示可能な端末かを判定します。NO_COLOR が設定されていれば false です。
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Log はメッセージを1行で出力します
func (l *ConsoleLogger) Log(level, message string, err error) {
	if levelValue(level) < l.minLevel {
		return
	}

	label := strings.ToUpper(level)
	if l.colorOutput {
		label = levelColor(label).Sprint(label)
	}

	line := fmt.Sprintf("[%s] [%s] %s", time.Now().Format("15:04:05"), label, message)
	if err != nil {
		line += ": " + err.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.writer, line)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}
