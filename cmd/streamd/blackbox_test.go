package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"streamd/pkg/types"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/cmd/streamd/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := filepath.Join(t.TempDir(), "streamd")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/streamd")
	cmd.Dir = projectRoot(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
	done chan error
}

func startServer(t *testing.T, bin, configPath string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, "run", "--config", configPath, "--addr", fmt.Sprintf("127.0.0.1:%d", port), "--env-file", "")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	sp := &serverProc{cmd: cmd, base: base, done: make(chan error, 1)}
	go func() { sp.done <- cmd.Wait() }()
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return sp
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

const flowConfig = `
log_format: console
managers:
  - id: m1
    rovers:
      - id: r1
        heartbeat: 20ms
      - id: r2
`

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	cfgPath := filepath.Join(t.TempDir(), "streamd.yaml")
	if err := os.WriteFile(cfgPath, []byte(flowConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	sp := startServer(t, bin, cfgPath)

	// every manager is started before the listener opens
	resp, body := do(t, http.MethodGet, sp.base+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz %d %s", resp.StatusCode, string(body))
	}

	resp, body = do(t, http.MethodGet, sp.base+"/managers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/managers %d %s", resp.StatusCode, string(body))
	}
	var list types.ManagersResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("/managers json: %v body=%s", err, string(body))
	}
	if len(list.Managers) != 1 || list.Managers[0].ID != "m1" || list.Managers[0].State != "running" {
		t.Fatalf("unexpected managers: %+v", list.Managers)
	}
	if len(list.Managers[0].Rovers) != 2 {
		t.Fatalf("expected 2 rovers, got %d", len(list.Managers[0].Rovers))
	}

	// heartbeats of r1 arrive on the event stream
	ws := "ws" + strings.TrimPrefix(sp.base, "http") + "/managers/m1/events"
	conn, _, err := websocket.DefaultDialer.Dial(ws, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f types.StreamFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.ManagerID != "m1" || f.RoverID != "r1" || f.Kind != types.FrameHeartbeat {
		t.Fatalf("unexpected frame: %+v", f)
	}
	_ = conn.Close()

	resp, body = do(t, http.MethodPost, sp.base+"/managers/m1/stop")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"state":"stopped"`) {
		t.Fatalf("stop %d %s", resp.StatusCode, string(body))
	}
	resp, _ = do(t, http.MethodGet, sp.base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz after stop %d", resp.StatusCode)
	}
	resp, body = do(t, http.MethodPost, sp.base+"/managers/m1/start")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"state":"running"`) {
		t.Fatalf("start %d %s", resp.StatusCode, string(body))
	}

	resp, _ = do(t, http.MethodGet, sp.base+"/managers/m9")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, sp.base+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "streamd_manager_starts_total") {
		t.Fatalf("/metrics %d", resp.StatusCode)
	}

	// SIGTERM shuts down cleanly
	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case err := <-sp.done:
		if err != nil {
			t.Fatalf("exit: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not exit after SIGTERM")
	}
}

func TestBlackbox_InvalidConfigExits(t *testing.T) {
	bin := buildBinary(t)
	cfgPath := filepath.Join(t.TempDir(), "streamd.yaml")
	if err := os.WriteFile(cfgPath, []byte("managers:\n  - id: ''\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := exec.Command(bin, "validate", "--config", cfgPath, "--env-file", "").CombinedOutput()
	if err == nil {
		t.Fatalf("expected non-zero exit, output=%s", string(out))
	}
	if !strings.Contains(string(out), "streamd:") {
		t.Fatalf("output=%q", string(out))
	}
}
