package subagent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/evansenter/clemini-go/internal/tasks"
	"github.com/evansenter/clemini-go/pkg/model"
)

func mustArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return raw
}

// stubBinary writes a tiny shell script that echoes its stdin back and
// stands in for a recursive --acp-server invocation in background tests.
func stubBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stub.sh")
	script := "#!/bin/sh\ncat\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

// acpStubBinary writes a shell script implementing just enough of the
// Agent Client Protocol's line-framed JSON-RPC to answer the foreground
// task tool's initialize -> new_session -> prompt handshake and emit one
// session_notification in between.
func acpStubBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "acp_stub.sh")
	script := `#!/bin/sh
while IFS= read -r line; do
	id=$(printf '%s' "$line" | sed -n 's/.*"id":\([0-9]*\).*/\1/p')
	case "$line" in
		*'"method":"initialize"'*)
			printf '{"jsonrpc":"2.0","id":%s,"result":{"protocol_version":"1"}}\n' "$id"
			;;
		*'"method":"new_session"'*)
			printf '{"jsonrpc":"2.0","id":%s,"result":{"session_id":"sess-1"}}\n' "$id"
			;;
		*'"method":"prompt"'*)
			printf '{"jsonrpc":"2.0","method":"session_notification","params":{"session_id":"sess-1","kind":"text_chunk","text_chunk":"working"}}\n'
			printf '{"jsonrpc":"2.0","id":%s,"result":{"response":"hello back"}}\n' "$id"
			exit 0
			;;
	esac
done
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write acp stub: %v", err)
	}
	return path
}

func TestTaskForegroundReturnsSubagentOutput(t *testing.T) {
	cfg := Config{Registry: tasks.NewRegistry(), BinaryPath: acpStubBinary(t)}
	res := NewTaskTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"prompt": "hello"}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Status   string `json:"status"`
		Response string `json:"response"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.Status != "completed" || payload.Response != "hello back" {
		t.Fatalf("unexpected result: %+v", payload)
	}
}

func TestTaskBackgroundRegistersSubagentTask(t *testing.T) {
	reg := tasks.NewRegistry()
	cfg := Config{Registry: reg, BinaryPath: stubBinary(t)}
	res := NewTaskTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"prompt": "hello", "background": true,
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.TaskID == "" || payload.Status != "running" {
		t.Fatalf("unexpected result: %+v", payload)
	}
	entry, ok := reg.Get(payload.TaskID)
	if !ok {
		t.Fatal("expected subagent task registered")
	}
	if entry.Snapshot().Kind != model.TaskSubagent {
		t.Fatalf("expected subagent kind, got %v", entry.Snapshot().Kind)
	}
}

func TestTaskMissingPromptIsInvalidArgument(t *testing.T) {
	cfg := Config{Registry: tasks.NewRegistry(), BinaryPath: stubBinary(t)}
	res := NewTaskTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"prompt": ""}))
	if !res.IsError() || res.ErrorCode != model.ErrInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %+v", res)
	}
}

func TestTaskRejectsUnsafeBinaryPath(t *testing.T) {
	cfg := Config{Registry: tasks.NewRegistry(), BinaryPath: "; rm -rf /"}
	res := NewTaskTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"prompt": "hello"}))
	if !res.IsError() || res.ErrorCode != model.ErrIO {
		t.Fatalf("expected IO_ERROR for unsafe binary path, got %+v", res)
	}
}
