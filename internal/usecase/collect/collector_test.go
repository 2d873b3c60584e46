package collect

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CodeCollect/internal/config"
	"CodeCollect/internal/domain/model"
	"CodeCollect/internal/infrastructure/filelock"
	"CodeCollect/internal/infrastructure/filesystem"
	"CodeCollect/internal/infrastructure/logging"
	"CodeCollect/internal/usecase/report"
)

func newTestCollector() *Collector {
	logger := logging.NewJSONLogger(io.Discard, "error")
	return NewCollector(filesystem.NewScanner(logger), report.NewGenerator(), logger)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func defaultOptions(includeJS bool) Options {
	return OptionsFromConfig(config.DefaultConfig(), includeJS)
}

// parseBlocks は出力ファイルを 見出し -> 内容 のマップへ分解します
func parseBlocks(t *testing.T, output string) map[string]string {
	t.Helper()
	blocks := make(map[string]string)
	trailer := "\n\n" + report.Delimiter + "\n\n"
	for output != "" {
		header, rest, ok := strings.Cut(output, ":\n")
		require.True(t, ok, "header not found in %q", output)
		content, next, ok := strings.Cut(rest, trailer)
		require.True(t, ok, "delimiter not found after %q", header)
		blocks[header] = content
		output = next
	}
	return blocks
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCollector_Collect_VueOnly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.vue": "<template></template>",
		"b.js":  "console.log(1)",
	})

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "_ALL_CODE.txt"), result.OutputPath)
	assert.Equal(t, []string{"a.vue"}, result.Files)

	output := readOutput(t, result.OutputPath)
	assert.Equal(t, "a.vue:\n<template></template>\n\n**\n\n", output)
	assert.Equal(t, int64(len(output)), result.Bytes)
}

func TestCollector_Collect_IncludeJS(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.vue": "<template></template>",
		"b.js":  "console.log(1)",
	})

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(true))
	require.NoError(t, err)

	blocks := parseBlocks(t, readOutput(t, result.OutputPath))
	assert.Equal(t, map[string]string{
		"a.vue": "<template></template>",
		"b.js":  "console.log(1)",
	}, blocks)
}

func TestCollector_Collect_NestedHeader(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"sub/c.vue": "<template><p/></template>"})

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)

	header := filepath.Join("sub", "c.vue") + ":\n"
	assert.True(t, strings.HasPrefix(readOutput(t, result.OutputPath), header))
}

func TestCollector_Collect_EmptyDirectory(t *testing.T) {
	root := t.TempDir()

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(true))
	require.NoError(t, err)

	assert.FileExists(t, result.OutputPath)
	assert.Empty(t, readOutput(t, result.OutputPath))
	assert.Empty(t, result.Files)
}

func TestCollector_Collect_MissingRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "missing")

	_, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.Error(t, err)
	assert.ErrorIs(t, err, filesystem.ErrInvalidRoot)

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries, "no output should be created")
}

func TestCollector_Collect_HeadersMatchFilteredFiles(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"App.vue":                      "<template><router-view/></template>",
		"main.js":                      "import App from './App.vue'\n",
		"components/Button.vue":        "<template><button/></template>\n",
		"components/forms/Input.vue":   "",
		"composables/useThing.js":      "export function useThing() {}\n",
		"composables/useThing.spec.ts": "test()",
		"styles/app.css":               "body{}",
		"types/index.d.ts":             "export {}",
		"utils/format.js":              "export const f = (x) => `${x}`\n\n**\n",
		"public/vendor/legacy.min.js":  "!function(){}()",
		"notes/todo.vue.md":            "- [ ] nope",
	}
	writeTree(t, root, files)

	for _, includeJS := range []bool{false, true} {
		result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(includeJS))
		require.NoError(t, err)

		var want []string
		for rel := range files {
			if strings.HasSuffix(rel, ".vue") || (includeJS && strings.HasSuffix(rel, ".js")) {
				want = append(want, filepath.FromSlash(rel))
			}
		}
		sort.Strings(want)

		got := append([]string{}, result.Files...)
		sort.Strings(got)
		assert.Equal(t, want, got, "includeJS=%v", includeJS)
	}
}

func TestCollector_Collect_RoundTrip(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.vue":       "<template>\n  <div>a</div>\n</template>\n",
		"sub/b.vue":   "line1\r\nline2\r\n",
		"sub/c.js":    "const s = 'unicode ✓ テスト'\n",
		"deep/x/y.js": "",
	}
	writeTree(t, root, files)

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(true))
	require.NoError(t, err)

	blocks := parseBlocks(t, readOutput(t, result.OutputPath))
	require.Len(t, blocks, len(files))
	for rel, content := range files {
		assert.Equal(t, content, blocks[filepath.FromSlash(rel)], rel)
	}
}

func TestCollector_Collect_OverwritesPreviousOutput(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.vue": "A"})

	collector := newTestCollector()
	first, err := collector.Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)
	second, err := collector.Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)

	assert.Equal(t, readOutput(t, first.OutputPath), readOutput(t, second.OutputPath))
	assert.Equal(t, "a.vue:\nA\n\n**\n\n", readOutput(t, second.OutputPath))
}

func TestCollector_Collect_ExcludesOwnOutput(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"notes.txt": "hello"})

	opts := defaultOptions(false)
	opts.PrimaryExtensions = []string{".txt"}

	collector := newTestCollector()
	_, err := collector.Collect(context.Background(), root, opts)
	require.NoError(t, err)
	result, err := collector.Collect(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"notes.txt"}, result.Files)
	assert.Equal(t, "notes.txt:\nhello\n\n**\n\n", readOutput(t, result.OutputPath))
}

func TestCollector_Collect_Sort(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"z.vue":     "z",
		"a/b.vue":   "b",
		"a.vue":     "a",
		"m/n/o.vue": "o",
	})

	opts := defaultOptions(false)
	opts.Sort = true

	result, err := newTestCollector().Collect(context.Background(), root, opts)
	require.NoError(t, err)
	assert.True(t, sort.StringsAreSorted(result.Files), "files = %v", result.Files)
}

func TestCollector_Collect_SkipBinary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"text.vue":   "<template/>",
		"binary.vue": string([]byte{0x00, 0x01, 0x02}),
	})

	opts := defaultOptions(false)
	opts.SkipBinary = true

	result, err := newTestCollector().Collect(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"text.vue"}, result.Files)
	assert.Equal(t, []string{"binary.vue"}, result.Skipped)
	assert.NotContains(t, readOutput(t, result.OutputPath), "binary.vue")
}

func TestCollector_Collect_BinaryIncludedByDefault(t *testing.T) {
	root := t.TempDir()
	raw := string([]byte{0x00, 0x01, 0x02})
	writeTree(t, root, map[string]string{"binary.vue": raw})

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)
	assert.Equal(t, "binary.vue:\n"+raw+"\n\n**\n\n", readOutput(t, result.OutputPath))
}

func TestCollector_Collect_DryRun(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.vue": "a", "sub/c.vue": "c"})

	var listing strings.Builder
	opts := defaultOptions(false)
	opts.DryRun = true
	opts.ListWriter = &listing

	result, err := newTestCollector().Collect(context.Background(), root, opts)
	require.NoError(t, err)

	assert.NoFileExists(t, result.OutputPath)
	assert.Len(t, result.Files, 2)
	assert.Contains(t, listing.String(), "a.vue")
	assert.Contains(t, listing.String(), filepath.Join("sub", "c.vue"))
}

func TestCollector_Collect_OutputLocked(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.vue": "a"})

	held := filelock.New(filepath.Join(root, "_ALL_CODE.txt"))
	require.NoError(t, held.TryLock())
	defer held.Release()

	_, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.Error(t, err)
	assert.True(t, IsOutputLocked(err))
}

func TestCollector_Collect_ReleasesLock(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.vue": "a"})

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)

	// ルート配下には出力ファイル以外を作成しない
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"a.vue", "_ALL_CODE.txt"}, names)

	lock := filelock.New(result.OutputPath)
	require.NoError(t, lock.TryLock())
	require.NoError(t, lock.Release())
}

func TestCollector_Collect_RootWithShellMetacharacters(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj*v2")
	require.NoError(t, os.Mkdir(root, 0755))
	writeTree(t, root, map[string]string{"a.vue": "<template></template>"})

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)
	assert.Equal(t, "a.vue:\n<template></template>\n\n**\n\n", readOutput(t, result.OutputPath))
}

func TestCollector_Collect_SkipsDirectorySymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"App.vue": "<template/>",
		"main.js": "import App from './App.vue'",
		"node_modules/.pnpm/chart.js@4/node_modules/chart.js/package.json": "{}",
	})
	target := filepath.Join(root, "node_modules", ".pnpm", "chart.js@4", "node_modules", "chart.js")
	if err := os.Symlink(target, filepath.Join(root, "node_modules", "chart.js")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	result, err := newTestCollector().Collect(context.Background(), root, defaultOptions(true))
	require.NoError(t, err)

	got := append([]string{}, result.Files...)
	sort.Strings(got)
	assert.Equal(t, []string{"App.vue", "main.js"}, got)
}

// stubScanner は固定のエントリを返す FileSystemScanner です
type stubScanner struct {
	validateErr error
	entries     []model.FileSystemEntry
	filter      filesystem.Filter
}

func (s *stubScanner) ValidateDirectoryPath(path string) error { return s.validateErr }

func (s *stubScanner) Scan(ctx context.Context, rootDir string, filter filesystem.Filter) ([]model.FileSystemEntry, error) {
	s.filter = filter
	return s.entries, nil
}

func (s *stubScanner) IsBinary(content []byte) bool { return false }

func TestCollector_Collect_WithInjectedScanner(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"only.vue": "only"})

	scanner := &stubScanner{entries: []model.FileSystemEntry{
		model.NewFileSystemEntry(filepath.Join(root, "only.vue"), "only.vue"),
	}}
	logger := logging.NewJSONLogger(io.Discard, "error")
	collector := NewCollector(scanner, report.NewGenerator(), logger)

	result, err := collector.Collect(context.Background(), root, defaultOptions(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"only.vue"}, result.Files)
	assert.Equal(t, "only.vue:\nonly\n\n**\n\n", readOutput(t, result.OutputPath))

	require.NotNil(t, scanner.filter)
	assert.False(t, scanner.filter.Match("_ALL_CODE.txt"))
	assert.True(t, scanner.filter.Match("x.vue"))
}

func TestCollector_Collect_InjectedValidatorError(t *testing.T) {
	root := t.TempDir()
	scanner := &stubScanner{validateErr: filesystem.ErrInvalidRoot}
	collector := NewCollector(scanner, report.NewGenerator(), logging.NewJSONLogger(io.Discard, "error"))

	_, err := collector.Collect(context.Background(), root, defaultOptions(false))
	assert.ErrorIs(t, err, filesystem.ErrInvalidRoot)
	assert.NoFileExists(t, filepath.Join(root, "_ALL_CODE.txt"))
}

func TestCollector_Collect_UnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read files regardless of permissions")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.vue": "a"})
	locked := filepath.Join(root, "locked.vue")
	require.NoError(t, os.WriteFile(locked, []byte("secret"), 0000))

	_, err := newTestCollector().Collect(context.Background(), root, defaultOptions(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked.vue")
}

func TestCollector_Collect_CustomOutputName(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.vue": "a"})

	opts := defaultOptions(false)
	opts.OutputName = "snapshot.txt"

	result, err := newTestCollector().Collect(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "snapshot.txt"), result.OutputPath)
	assert.FileExists(t, result.OutputPath)
}
