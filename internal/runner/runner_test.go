package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philjestin/philfmt/internal/engine"
)

func stepClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := time.Unix(0, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

// workdir creates files in a fresh directory and makes it the working
// directory for the rest of the test.
func workdir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	chdir(t, dir)
	return dir
}

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, eng engine.Engine, opts Options, fmtOpts engine.Options, extra ...Option) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	options := append([]Option{
		WithStdout(&stdout),
		WithStderr(&stderr),
		WithStdin(strings.NewReader("")),
		WithClock(stepClock(7 * time.Millisecond)),
	}, extra...)
	code := New(eng, opts, fmtOpts, options...).Run(context.Background())
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_ListDifferent(t *testing.T) {
	workdir(t, map[string]string{"a.js": "A = 1;\n", "b.js": "b = 1;\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"a.js", "b.js"}, ListDifferent: true}, engine.DefaultOptions())
	assert.Equal(t, "a.js\n", res.stdout)
	assert.Empty(t, res.stderr)
	assert.Equal(t, int(Different), res.code)
	assert.Equal(t, "A = 1;\n", readFile(t, "a.js"))
}

func TestRun_Write(t *testing.T) {
	workdir(t, map[string]string{"a.js": "A = 1;\n", "b.js": "b = 1;\n"})
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes("b.js", old, old))

	res := run(t, &fakeEngine{}, Options{Patterns: []string{"a.js", "b.js"}, Write: true}, engine.DefaultOptions())
	assert.Equal(t, "a.js 7ms\nb.js 7ms\n", res.stdout)
	assert.Empty(t, res.stderr)
	assert.Equal(t, int(OK), res.code)

	assert.Equal(t, "a = 1;\n", readFile(t, "a.js"))
	assert.Equal(t, "b = 1;\n", readFile(t, "b.js"))
	info, err := os.Stat("b.js")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "unchanged file must keep its mtime")
}

func TestRun_WriteKeepsPermissions(t *testing.T) {
	workdir(t, map[string]string{"a.js": "A;\n"})
	require.NoError(t, os.Chmod("a.js", 0o600))
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"a.js"}, Write: true}, engine.DefaultOptions())
	require.Equal(t, int(OK), res.code)
	info, err := os.Stat("a.js")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRun_WriteAndListDifferent(t *testing.T) {
	workdir(t, map[string]string{"a.js": "A = 1;\n", "b.js": "b = 1;\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"a.js", "b.js"}, Write: true, ListDifferent: true}, engine.DefaultOptions())
	assert.Equal(t, "a.js\n", res.stdout)
	assert.Equal(t, int(Different), res.code)
	assert.Equal(t, "a = 1;\n", readFile(t, "a.js"))
}

func TestRun_ConflictingModes(t *testing.T) {
	for _, tc := range []struct {
		opts Options
		msg  string
	}{
		{Options{Write: true, DebugCheck: true}, "Cannot use --write and --debug-check together.\n"},
		{Options{Write: true, DebugPrintDoc: true}, "Cannot use --write and --debug-print-doc together.\n"},
		{Options{DebugCheck: true, DebugPrintDoc: true}, "Cannot use --debug-check and --debug-print-doc together.\n"},
	} {
		t.Run(tc.msg, func(t *testing.T) {
			workdir(t, map[string]string{"a.js": "A;\n"})
			eng := &fakeEngine{}
			tc.opts.Patterns = []string{"a.js"}
			res := run(t, eng, tc.opts, engine.DefaultOptions())
			assert.Equal(t, ExitFatal, res.code)
			assert.Equal(t, tc.msg, res.stderr)
			assert.Empty(t, res.stdout)
			assert.Empty(t, eng.formatted())
			assert.Equal(t, "A;\n", readFile(t, "a.js"))
		})
	}
}

func TestRun_GlobWithoutMatches(t *testing.T) {
	workdir(t, map[string]string{"a.js": "A;\n"})
	eng := &fakeEngine{}
	res := run(t, eng, Options{Patterns: []string{"*.css"}}, engine.DefaultOptions())
	assert.Equal(t, int(OK), res.code)
	assert.Empty(t, res.stdout)
	assert.Empty(t, res.stderr)
	assert.Empty(t, eng.formatted())
}

func TestRun_ValidationErrorStopsRun(t *testing.T) {
	workdir(t, map[string]string{"1.js": "x;\n", "2.js": "INVALID\n", "3.js": "y;\n"})
	eng := &fakeEngine{}
	res := run(t, eng, Options{Patterns: []string{"*.js"}}, engine.DefaultOptions())
	assert.Equal(t, ExitFatal, res.code)
	assert.Equal(t, []string{"1.js", "2.js"}, eng.formatted())
	assert.Equal(t, "x;\n", res.stdout)
	assert.Equal(t, "Validation Error: bad option\n", res.stderr)
}

func TestRun_ValidationErrorStopsLaterPatterns(t *testing.T) {
	workdir(t, map[string]string{"a.js": "INVALID\n", "b.js": "b;\n"})
	eng := &fakeEngine{}
	res := run(t, eng, Options{Patterns: []string{"a.js", "b.js"}, Jobs: 4}, engine.DefaultOptions())
	assert.Equal(t, ExitFatal, res.code)
	assert.Equal(t, []string{"a.js"}, eng.formatted())
}

func TestRun_ReadErrorContinues(t *testing.T) {
	workdir(t, map[string]string{"b.js": "b = 1;\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"missing.js", "b.js"}}, engine.DefaultOptions())
	assert.Equal(t, int(Failed), res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "Unable to read file: missing.js\n"), res.stderr)
	assert.Equal(t, "b = 1;\n", res.stdout)
}

func TestRun_ParseError(t *testing.T) {
	workdir(t, map[string]string{"s.js": "SYNTAX\n", "b.js": "b;\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"s.js", "b.js"}}, engine.DefaultOptions())
	assert.Equal(t, int(Failed), res.code)
	assert.Equal(t, "s.js: SyntaxError: Unexpected token (1:3)\n", res.stderr)
	assert.Equal(t, "b;\n", res.stdout)
}

func TestRun_PanicIsUnexpected(t *testing.T) {
	workdir(t, map[string]string{"p.js": "PANIC\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"p.js"}}, engine.DefaultOptions())
	assert.Equal(t, int(Failed), res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "p.js: boom\n"), res.stderr)
	assert.Contains(t, res.stderr, "goroutine")
}

func TestRun_FailureOutranksDifferences(t *testing.T) {
	for _, patterns := range [][]string{{"s.js", "a.js"}, {"a.js", "s.js"}} {
		workdir(t, map[string]string{"a.js": "A;\n", "s.js": "SYNTAX\n"})
		res := run(t, &fakeEngine{}, Options{Patterns: patterns, ListDifferent: true}, engine.DefaultOptions())
		assert.Equal(t, int(Failed), res.code, patterns)
		assert.Equal(t, "a.js\n", res.stdout)
	}
}

func TestRun_WriteError(t *testing.T) {
	workdir(t, map[string]string{"sub/a.js": "A;\n", "b.js": "B;\n"})
	eng := &fakeEngine{onFormat: func(opts engine.Options) {
		if opts.Filepath == "sub/a.js" {
			_ = os.RemoveAll("sub")
		}
	}}
	res := run(t, eng, Options{Patterns: []string{"sub/a.js", "b.js"}, Write: true}, engine.DefaultOptions())
	assert.Equal(t, int(Failed), res.code)
	assert.Equal(t, "sub/a.js 7ms\nb.js 7ms\n", res.stdout)
	assert.True(t, strings.HasPrefix(res.stderr, "Unable to write file: sub/a.js\n"), res.stderr)
	assert.Equal(t, "b;\n", readFile(t, "b.js"))
}

func TestRun_BadPattern(t *testing.T) {
	workdir(t, map[string]string{"a.js": "a;\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"[", "a.js"}}, engine.DefaultOptions())
	assert.Equal(t, int(Failed), res.code)
	assert.Equal(t, "[: syntax error in pattern\n", res.stderr)
	assert.Equal(t, "a;\n", res.stdout)
}

func TestRun_NodeModulesIgnored(t *testing.T) {
	workdir(t, map[string]string{"node_modules/x/a.js": "A;\n", "src/b.js": "b;\n"})
	eng := &fakeEngine{}
	res := run(t, eng, Options{
		Patterns:          []string{"node_modules/x/a.js", "**/*.js"},
		IgnoreNodeModules: true,
	}, engine.DefaultOptions())
	assert.Equal(t, int(OK), res.code)
	assert.Equal(t, []string{"src/b.js"}, eng.formatted())
}

func TestRun_EmitAlwaysPrints(t *testing.T) {
	workdir(t, map[string]string{"a.js": "a;\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"a.js"}}, engine.DefaultOptions())
	assert.Equal(t, "a;\n", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestRun_CursorOffset(t *testing.T) {
	workdir(t, map[string]string{"a.js": "A;\n"})
	fo := engine.DefaultOptions()
	fo.CursorOffset = 1
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"a.js"}}, fo)
	assert.Equal(t, "a;\n", res.stdout)
	assert.Equal(t, "1\n", res.stderr)
}

func TestRun_Stdin(t *testing.T) {
	fo := engine.DefaultOptions()
	fo.CursorOffset = 3
	res := run(t, &fakeEngine{}, Options{Stdin: true}, fo, WithStdin(strings.NewReader("HELLO\n")))
	assert.Equal(t, int(OK), res.code)
	assert.Equal(t, "hello\n", res.stdout)
	assert.Equal(t, "3\n", res.stderr)
}

func TestRun_StdinWithoutCursor(t *testing.T) {
	res := run(t, &fakeEngine{}, Options{Stdin: true}, engine.DefaultOptions(), WithStdin(strings.NewReader("X;")))
	assert.Equal(t, "x;", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestRun_StdinFailure(t *testing.T) {
	res := run(t, &fakeEngine{}, Options{Stdin: true}, engine.DefaultOptions(), WithStdin(strings.NewReader("SYNTAX")))
	assert.Equal(t, int(Failed), res.code)
	assert.Empty(t, res.stdout)
	assert.Equal(t, "stdin: SyntaxError: Unexpected token (1:3)\n", res.stderr)
}

func TestRun_StdinFilepath(t *testing.T) {
	eng := &fakeEngine{}
	run(t, eng, Options{Stdin: true, StdinFilepath: "src/x.ts"}, engine.DefaultOptions(), WithStdin(strings.NewReader("x")))
	assert.Equal(t, []string{"src/x.ts"}, eng.formatted())

	eng = &fakeEngine{}
	run(t, eng, Options{Stdin: true}, engine.DefaultOptions(), WithStdin(strings.NewReader("x")))
	assert.Equal(t, []string{""}, eng.formatted())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("broken pipe") }

func TestRun_StdinReadError(t *testing.T) {
	res := run(t, &fakeEngine{}, Options{Stdin: true}, engine.DefaultOptions(), WithStdin(failingReader{}))
	assert.Equal(t, int(Failed), res.code)
	assert.Equal(t, "Unable to read file: stdin\nbroken pipe\n", res.stderr)
}

func TestRun_StdinDebugCheck(t *testing.T) {
	res := run(t, &fakeEngine{}, Options{Stdin: true, DebugCheck: true}, engine.DefaultOptions(), WithStdin(strings.NewReader("x;\n")))
	assert.Equal(t, int(OK), res.code)
	assert.Equal(t, "(stdin)\n", res.stdout)
}

func TestRun_DebugCheck(t *testing.T) {
	workdir(t, map[string]string{"ok.js": "OK;\n", "u.js": "UNSTABLE\n", "s.js": "SEMANTIC\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"ok.js", "u.js", "s.js"}, DebugCheck: true}, engine.DefaultOptions())
	assert.Equal(t, int(Failed), res.code)
	assert.Equal(t, "ok.js\n", res.stdout)
	assert.Contains(t, res.stderr, "u.js: philfmt(input) !== philfmt(philfmt(input))\n")
	assert.Contains(t, res.stderr, "s.js: ast(input) !== ast(philfmt(input))\n")
	assert.Contains(t, res.stderr, "-SEMANTIC")
	assert.Contains(t, res.stderr, "+semantic")
}

func TestRun_DebugCheckBuiltin(t *testing.T) {
	workdir(t, map[string]string{"a.js": "const a = 'x';   \n\n\n"})
	res := run(t, engine.NewBuiltin(), Options{Patterns: []string{"a.js"}, DebugCheck: true}, engine.DefaultOptions())
	assert.Equal(t, int(OK), res.code, res.stderr)
	assert.Equal(t, "a.js\n", res.stdout)
}

func TestRun_DebugPrintDoc(t *testing.T) {
	workdir(t, map[string]string{"a.js": "x;\n"})
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"a.js"}, DebugPrintDoc: true}, engine.DefaultOptions())
	assert.Equal(t, int(OK), res.code)
	assert.Contains(t, res.stdout, "concat([")
	assert.Contains(t, res.stdout, `"x;"`)
}

func TestRun_Jobs(t *testing.T) {
	files := map[string]string{}
	var want []string
	for i := 0; i < 30; i++ {
		name := fmt.Sprintf("f%02d.js", i)
		files[name] = fmt.Sprintf("X%d;\n", i)
		want = append(want, name)
	}
	workdir(t, files)
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"*.js"}, ListDifferent: true, Jobs: 4}, engine.DefaultOptions())
	assert.Equal(t, int(Different), res.code)
	got := strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n")
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func TestRun_JobsWrite(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 12; i++ {
		files[fmt.Sprintf("f%02d.js", i)] = "A;\n"
	}
	workdir(t, files)
	res := run(t, &fakeEngine{}, Options{Patterns: []string{"*.js"}, Write: true, Jobs: 3}, engine.DefaultOptions())
	assert.Equal(t, int(OK), res.code)
	for name := range files {
		assert.Equal(t, "a;\n", readFile(t, name))
	}
	assert.Len(t, strings.Split(strings.TrimSuffix(res.stdout, "\n"), "\n"), len(files))
}

func TestRun_Builtin(t *testing.T) {
	workdir(t, map[string]string{
		"a.js":   "const a = 'x';   \n\n\n\nfoo()\n",
		"b.ts":   "let b: number = 1;\n",
		"bad.js": "const = ;\n",
	})
	res := run(t, engine.NewBuiltin(), Options{Patterns: []string{"*.{js,ts}"}, ListDifferent: true}, engine.DefaultOptions())
	assert.Equal(t, int(Failed), res.code)
	assert.Equal(t, "a.js\n", res.stdout)
	assert.True(t, strings.HasPrefix(res.stderr, "bad.js: SyntaxError: "), res.stderr)
}

func TestRun_Cancelled(t *testing.T) {
	workdir(t, map[string]string{"a.js": "a;\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout bytes.Buffer
	code := New(&fakeEngine{}, Options{Patterns: []string{"a.js"}}, engine.DefaultOptions(),
		WithStdout(&stdout), WithStderr(io.Discard)).Run(ctx)
	assert.Equal(t, int(Failed), code)
	assert.Empty(t, stdout.String())
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
