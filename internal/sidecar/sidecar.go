// Package sidecar supervises the Node.js captcha capture subprocess.
//
// The protocol is plain-text commands on stdin (GET_TOKENS <n>,
// RESTART_BROWSER, PING, SHUTDOWN) and line-delimited JSON events on stdout.
// stderr carries the sidecar's own debug logging and is drained into slog.
package sidecar

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// ActionVideoGeneration is the default token action. It is the sidecar's own
// default, so it is never passed on the command line.
const ActionVideoGeneration = "VIDEO_GENERATION"

const (
	gracefulWait = 5 * time.Second
	killWait     = 3 * time.Second
)

// Listener receives sidecar lifecycle events. Implementations must not
// block: they run on the manager's reader goroutine.
type Listener interface {
	Ready()
	TokensReceived(tokens []string, action string)
	Error(message string)
	Stopped()
}

// Manager runs one sidecar process and owns all communication with it.
type Manager struct {
	proxyURL string
	action   string

	mu        sync.Mutex
	listeners []Listener
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	pending   string
	exited    chan struct{}

	stopping atomic.Bool
	done     chan struct{}
}

// NewManager returns a Manager for the given proxy URL (empty for direct
// connection) and token action.
func NewManager(proxyURL, action string) *Manager {
	return &Manager{
		proxyURL: proxyURL,
		action:   action,
		pending:  ActionVideoGeneration,
		done:     make(chan struct{}),
	}
}

// AddListener registers an event listener.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) snapshotListeners() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Listener(nil), m.listeners...)
}

func (m *Manager) notifyError(msg string) {
	for _, l := range m.snapshotListeners() {
		l.Error(msg)
	}
}

// Start locates node and the sidecar script, spawns the process, and begins
// reading its output in a background goroutine. Failure to locate either
// prerequisite is reported through Error + Stopped, never as a panic.
func (m *Manager) Start() {
	go m.run()
}

func (m *Manager) run() {
	defer close(m.done)
	defer func() {
		for _, l := range m.snapshotListeners() {
			l.Stopped()
		}
		slog.Info("sidecar manager stopped")
	}()

	nodePath, err := findNode()
	if err != nil {
		m.notifyError("Node.js not found. Install Node.js to use Puppeteer mode.")
		return
	}
	scriptPath, err := findScript()
	if err != nil {
		m.notifyError("capture-sidecar.js not found in pucaptcha/ or captcha/")
		return
	}

	args := buildArgs(scriptPath, m.action, m.proxyURL)
	cmd := exec.Command(nodePath, args...)
	cmd.Dir = filepath.Dir(scriptPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		m.notifyError(fmt.Sprintf("Failed to start sidecar: %v", err))
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.notifyError(fmt.Sprintf("Failed to start sidecar: %v", err))
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		m.notifyError(fmt.Sprintf("Failed to start sidecar: %v", err))
		return
	}

	slog.Info("starting sidecar", "node", nodePath, "script", scriptPath)
	if err := cmd.Start(); err != nil {
		m.notifyError(fmt.Sprintf("Failed to start sidecar: %v", err))
		return
	}

	exited := make(chan struct{})
	m.mu.Lock()
	m.cmd = cmd
	m.stdin = stdin
	m.exited = exited
	m.mu.Unlock()

	go func() {
		cmd.Wait()
		close(exited)
	}()

	go drainStderr(stderr)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if m.stopping.Load() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		m.handleLine(line)
	}

	m.cleanup()
}

// drainStderr forwards the sidecar's own logging at debug level.
func drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			slog.Debug("sidecar stderr", "line", line)
		}
	}
}

// handleLine parses one stdout line as a JSON event and dispatches it.
// Non-JSON lines are logged and dropped.
func (m *Manager) handleLine(line string) {
	if !gjson.Valid(line) {
		slog.Warn("non-JSON line from sidecar", "line", line)
		return
	}
	data := gjson.Parse(line)

	success := data.Get("success").Bool()
	message := data.Get("message").String()
	errMsg := data.Get("error").String()

	if success && message == "READY" {
		slog.Info("sidecar ready")
		for _, l := range m.snapshotListeners() {
			l.Ready()
		}
		return
	}

	if message == "INIT_FAILED" {
		if errMsg == "" {
			errMsg = "Sidecar initialization failed"
		}
		if hint := data.Get("errorHint").String(); hint != "" {
			errMsg = errMsg + ": " + hint
		}
		slog.Error("sidecar init failed", "err", errMsg)
		m.notifyError(errMsg)
		return
	}

	if tokens := data.Get("tokens").Array(); success && len(tokens) > 0 {
		list := make([]string, 0, len(tokens))
		for _, t := range tokens {
			list = append(list, t.String())
		}
		m.mu.Lock()
		action := m.pending
		m.mu.Unlock()
		slog.Info("tokens received", "count", len(list), "action", action)
		for _, l := range m.snapshotListeners() {
			l.TokensReceived(list, action)
		}
		return
	}

	if !success && errMsg != "" {
		full := errMsg
		if hint := data.Get("errorHint").String(); hint != "" {
			full = errMsg + ": " + hint
		}
		slog.Error("sidecar error",
			"type", data.Get("errorType").String(), "err", full)
		m.notifyError(full)
		if data.Get("isFatal").Bool() {
			slog.Error("fatal sidecar error, stopping")
			m.stopping.Store(true)
		}
		return
	}

	if message != "" {
		slog.Info("sidecar message", "message", message)
	}
}

// sendCommand writes one command line to the sidecar's stdin. Returns false
// without error when no process is running.
func (m *Manager) sendCommand(command string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stdin == nil {
		slog.Warn("cannot send command, sidecar not running", "command", command)
		return false
	}
	if _, err := io.WriteString(m.stdin, command+"\n"); err != nil {
		slog.Error("sidecar command failed", "command", command, "err", err)
		return false
	}
	slog.Debug("sent sidecar command", "command", command)
	return true
}

// RequestTokens asks the sidecar for count tokens. The action tags the next
// TokensReceived notification.
func (m *Manager) RequestTokens(count int, action string) bool {
	m.mu.Lock()
	m.pending = action
	m.mu.Unlock()
	return m.sendCommand("GET_TOKENS " + strconv.Itoa(count))
}

// RestartBrowser asks the sidecar to restart its browser.
func (m *Manager) RestartBrowser() bool {
	return m.sendCommand("RESTART_BROWSER")
}

// Ping checks whether the sidecar is alive.
func (m *Manager) Ping() bool {
	return m.sendCommand("PING")
}

// cleanup shuts the process down: SHUTDOWN first, then kill if it lingers.
// Never returns while the process is still alive.
func (m *Manager) cleanup() {
	m.mu.Lock()
	cmd, stdin, exited := m.cmd, m.stdin, m.exited
	m.cmd, m.stdin = nil, nil
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	if stdin != nil {
		io.WriteString(stdin, "SHUTDOWN\n")
		stdin.Close()
	}

	select {
	case <-exited:
		return
	case <-time.After(gracefulWait):
	}

	slog.Warn("sidecar did not exit gracefully, killing")
	cmd.Process.Kill()
	select {
	case <-exited:
	case <-time.After(killWait):
		slog.Error("sidecar still running after kill")
	}
}

// Stop shuts the sidecar down and waits for the reader goroutine to finish.
// cleanup owns the SHUTDOWN write.
func (m *Manager) Stop() {
	slog.Info("stopping sidecar")
	m.stopping.Store(true)
	m.cleanup()
	select {
	case <-m.done:
	case <-time.After(gracefulWait):
	}
}

// Running reports whether the sidecar process is alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	cmd, exited := m.cmd, m.exited
	m.mu.Unlock()
	if cmd == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

// buildArgs assembles the sidecar command line. The action rides on --type
// only when it differs from the sidecar's built-in default; a proxy URL, if
// any, goes last as a positional argument.
func buildArgs(scriptPath, action, proxyURL string) []string {
	args := []string{scriptPath}
	if action != "" && action != ActionVideoGeneration {
		args = append(args, "--type", action)
	}
	if proxyURL != "" {
		args = append(args, proxyURL)
	}
	return args
}

// findNode locates the node binary: PATH first, then well-known install
// locations for the current OS.
func findNode() (string, error) {
	if path, err := exec.LookPath("node"); err == nil {
		return path, nil
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		candidates = []string{
			"/usr/local/bin/node",
			"/opt/homebrew/bin/node",
			filepath.Join(home, ".nvm", "versions", "node", "*", "bin", "node"),
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\nodejs\node.exe`,
			`C:\Program Files (x86)\nodejs\node.exe`,
		}
	default:
		home, _ := os.UserHomeDir()
		candidates = []string{
			"/usr/bin/node",
			"/usr/local/bin/node",
			filepath.Join(home, ".nvm", "versions", "node", "*", "bin", "node"),
		}
	}
	return firstExisting(candidates)
}

// firstExisting returns the first candidate that exists on disk. Glob
// patterns expand to the most recently modified match, which for nvm layouts
// is the last version installed.
func firstExisting(candidates []string) (string, error) {
	for _, c := range candidates {
		if containsGlob(c) {
			matches, _ := filepath.Glob(c)
			if best := newestFile(matches); best != "" {
				return best, nil
			}
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("node binary not found")
}

func containsGlob(path string) bool {
	for _, r := range path {
		if r == '*' || r == '?' || r == '[' {
			return true
		}
	}
	return false
}

func newestFile(paths []string) string {
	var best string
	var bestMod time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = p, info.ModTime()
		}
	}
	return best
}

// findScript locates capture-sidecar.js next to the executable or under the
// working directory.
func findScript() (string, error) {
	var roots []string
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}

	for _, root := range roots {
		for _, sub := range []string{"pucaptcha", "captcha"} {
			path := filepath.Join(root, sub, "capture-sidecar.js")
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("capture-sidecar.js not found")
}
