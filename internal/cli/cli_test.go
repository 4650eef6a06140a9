package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckhand/internal/quotes"

	miniredis "github.com/alicebob/miniredis/v2"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: deckhand %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	return decodeEnvelope(t, stdout)
}

func decodeEnvelope(t *testing.T, stdout []byte) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s", err, stdout)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected envelope to contain data key; got: %v", env)
	}
	return env
}

// isolate keeps commands away from the real ~/.deckhand.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DECKHAND_CONFIG_DIR", dir)
	for _, k := range []string{"DECKHAND_CONFIG", "DECKHAND_SOURCE", "DECKHAND_URL", "DECKHAND_DB", "DECKHAND_REDIS_URL", "DECKHAND_BOARD", "DECKHAND_FORMAT", "DEBUG"} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestBoardShow_Default(t *testing.T) {
	isolate(t)
	env := mustRun(t, "board", "show")
	data := env["data"].(map[string]any)
	if data["name"] != "Tasks Board" {
		t.Fatalf("unexpected board: %#v", data)
	}
	if cols, _ := data["columns"].([]any); len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %#v", data["columns"])
	}
}

func TestBoardRename_PrintsUpdatedBoardAndLeavesFileAlone(t *testing.T) {
	dir := isolate(t)
	body := `
name: Sprint
columns:
  - name: Todo
    tasks:
      - {id: t1, name: Write tests}
      - {id: t2, name: Fix bug}
  - name: Done
    tasks:
      - {id: t3, name: Ship}
`
	path := writeFile(t, filepath.Join(dir, "board.yaml"), body)

	env := mustRun(t, "--board", path, "board", "rename", "--column", "0", "--task", "1", "--name", "Fix the bug")
	data := env["data"].(map[string]any)
	if data["changed"] != true {
		t.Fatalf("expected changed=true, got %#v", data)
	}
	b := data["board"].(map[string]any)
	task := b["columns"].([]any)[0].(map[string]any)["tasks"].([]any)[1].(map[string]any)
	if task["name"] != "Fix the bug" || task["id"] != "t2" {
		t.Fatalf("unexpected task: %#v", task)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read board: %v", err)
	}
	if string(after) != body {
		t.Fatalf("board file was modified")
	}
}

func TestBoardRename_OutOfRange(t *testing.T) {
	isolate(t)
	_, stderr, err := runCLI(t, []string{"board", "rename", "--column", "9", "--task", "0", "--name", "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(string(stderr), "stale selection") {
		t.Fatalf("expected stale selection error, got %q", stderr)
	}
}

func TestQuotesFetch_AbortsSlowSource(t *testing.T) {
	dir := isolate(t)
	cfg := writeFile(t, filepath.Join(dir, "slow.json"), `{"quotes":{"source":"memory","latency":"5s"}}`)

	env := mustRun(t, "--config", cfg, "quotes", "fetch", "--abort", "--abort-after", "50ms")
	data := env["data"].(map[string]any)
	rec := data["record"].(map[string]any)
	if rec["status"] != "error" || rec["cancelled"] != true {
		t.Fatalf("expected cancelled error record, got %#v", rec)
	}
	notes := data["notifications"].([]any)
	if len(notes) != 1 || notes[0].(map[string]any)["text"] != "Request aborted" {
		t.Fatalf("expected one abort notification, got %#v", notes)
	}
	if _, ok := env["_hint"]; !ok {
		t.Fatalf("expected an abort hint")
	}
}

func TestQuotesFetch_WithoutAbortWaits(t *testing.T) {
	dir := isolate(t)
	cfg := writeFile(t, filepath.Join(dir, "fast.json"), `{"quotes":{"latency":"10ms"}}`)

	env := mustRun(t, "--config", cfg, "quotes", "fetch", "--abort=false")
	rec := env["data"].(map[string]any)["record"].(map[string]any)
	if rec["status"] != "success" {
		t.Fatalf("expected success, got %#v", rec)
	}
	if qs, _ := rec["data"].([]any); len(qs) != len(quotes.Defaults()) {
		t.Fatalf("expected %d quotes, got %#v", len(quotes.Defaults()), rec["data"])
	}
	if meta := env["meta"].(map[string]any); meta["source"] != "memory" {
		t.Fatalf("unexpected meta: %#v", meta)
	}
}

func TestQuotesSeedThenFetchFromSQLite(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "quotes.sqlite")

	seeded := mustRun(t, "--db", db, "quotes", "seed")
	if n, _ := seeded["data"].(map[string]any)["count"].(float64); int(n) != len(quotes.Defaults()) {
		t.Fatalf("unexpected seed result: %#v", seeded["data"])
	}

	env := mustRun(t, "--source", "sqlite", "--db", db, "quotes", "fetch", "--abort=false")
	rec := env["data"].(map[string]any)["record"].(map[string]any)
	qs, _ := rec["data"].([]any)
	if rec["status"] != "success" || len(qs) != len(quotes.Defaults()) {
		t.Fatalf("unexpected record: %#v", rec)
	}
	first := qs[0].(map[string]any)
	if first["author"] != quotes.Defaults()[0].Author {
		t.Fatalf("expected rank order, got %#v", first)
	}
}

func TestQuotesFetch_HTTPThroughRedis(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(quotes.NewServer(quotes.Static(quotes.Defaults()[:2]), quotes.ServerOpts{}))
	t.Cleanup(srv.Close)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	args := []string{"--source", "http", "--url", srv.URL, "--redis", "redis://" + mr.Addr(), "quotes", "fetch", "--abort=false"}
	env := mustRun(t, args...)
	rec := env["data"].(map[string]any)["record"].(map[string]any)
	if qs, _ := rec["data"].([]any); rec["status"] != "success" || len(qs) != 2 {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if meta := env["meta"].(map[string]any); meta["source"] != "http+redis" {
		t.Fatalf("unexpected meta: %#v", meta)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("expected quotes to be cached in redis, keys=%v", mr.Keys())
	}

	mustRun(t, "--redis", "redis://"+mr.Addr(), "quotes", "evict")
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected evict to clear redis, keys=%v", mr.Keys())
	}
}

func TestQuotesFetch_TransportErrorFailsCommand(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(quotes.NewServer(failingSource{}, quotes.ServerOpts{}))
	t.Cleanup(srv.Close)

	stdout, stderr, err := runCLI(t, []string{"--source", "http", "--url", srv.URL, "quotes", "fetch", "--abort=false"})
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	rec := decodeEnvelope(t, stdout)["data"].(map[string]any)["record"].(map[string]any)
	if rec["status"] != "error" || rec["cancelled"] != false {
		t.Fatalf("expected non-cancelled error, got %#v", rec)
	}
	if len(stderr) == 0 {
		t.Fatalf("expected error on stderr")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)

	env := mustRun(t, "config", "init")
	if p := env["data"].(map[string]any)["path"]; p != filepath.Join(dir, "config.json") {
		t.Fatalf("unexpected path: %v", p)
	}
	if _, _, err := runCLI(t, []string{"config", "init"}); err == nil {
		t.Fatalf("expected second init to refuse overwriting")
	}

	stdout, _, err := runCLI(t, []string{"--format", "edn", "config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "{:data {") || !strings.Contains(string(stdout), `:abort-after "200ms"`) {
		t.Fatalf("unexpected edn output: %s", stdout)
	}
}

func TestInvalidSourceIsRejected(t *testing.T) {
	isolate(t)
	if _, _, err := runCLI(t, []string{"--source", "http", "quotes", "fetch"}); err == nil {
		t.Fatalf("expected http source without url to fail")
	}
}

func TestDocs(t *testing.T) {
	isolate(t)
	env := mustRun(t, "docs")
	topics, _ := env["data"].(map[string]any)["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected docs topics")
	}
	stdout, _, err := runCLI(t, []string{"docs", "board", "--raw"})
	if err != nil {
		t.Fatalf("docs board: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Board") {
		t.Fatalf("unexpected raw docs: %q", stdout)
	}
}

func TestBadQuotesConfigOnlyBlocksQuoteCommands(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{"quotes":{"source":"bogus"}}`)

	mustRun(t, "docs")
	mustRun(t, "board", "show")
	mustRun(t, "config", "show")
	if _, _, err := runCLI(t, []string{"quotes", "fetch"}); err == nil || !strings.Contains(err.Error(), "unknown quotes source") {
		t.Fatalf("expected quotes fetch to reject the source, got %v", err)
	}

	mustRun(t, "config", "init", "--force")
	env := mustRun(t, "quotes", "fetch", "--abort=false")
	rec := env["data"].(map[string]any)["record"].(map[string]any)
	if rec["status"] != "success" {
		t.Fatalf("expected fetch to work after repairing the config, got %#v", rec)
	}
}

func TestUnreadableConfigCanBeReplaced(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "config.json"), `{"quotes":`)

	if _, _, err := runCLI(t, []string{"board", "show"}); err == nil {
		t.Fatalf("expected board show to report the broken config")
	}
	mustRun(t, "docs")
	mustRun(t, "config", "init", "--force")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !json.Valid(b) {
		t.Fatalf("expected init to write valid json, got %s", b)
	}
	mustRun(t, "board", "show")
}

func TestExecute_ClosesLogFileWhenCommandFails(t *testing.T) {
	dir := isolate(t)
	logPath := filepath.Join(dir, "cli.log")
	writeFile(t, filepath.Join(dir, "config.json"), `{"log":{"level":"debug","file":"`+filepath.ToSlash(logPath)+`"}}`)

	app := &App{}
	cmd := newRootCmd(app)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--board", filepath.Join(dir, "missing.yaml"), "board", "show"})

	if err := app.execute(context.Background(), cmd); err == nil {
		t.Fatalf("expected missing board to fail")
	}
	if app.closeLog != nil {
		t.Fatalf("expected log to be closed after a failed command")
	}
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "command failed") {
		t.Fatalf("expected failure in log file, got %q", b)
	}
}
