package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/chrimage/content-mill/internal/config"
	"github.com/chrimage/content-mill/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
	chatCalls  atomic.Int64

	mu     sync.Mutex
	voices []string
}

// speechVoices returns the voice of every speech request in order.
func (e *cliTestEnv) speechVoices() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.voices...)
}

// setupCLITestEnv writes a config pointing at a fake provider that answers
// every chat completion with chatContent, every speech request with a 1.5s
// clip for the ffprobe stub, and every image request with a small still.
func setupCLITestEnv(t *testing.T, chatContent string, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	env := &cliTestEnv{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		env.chatCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": chatContent}}},
		})
	})
	mux.HandleFunc("/v1/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Voice string `json:"voice"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		env.mu.Lock()
		env.voices = append(env.voices, body.Voice)
		env.mu.Unlock()
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("1.5"))
	})
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte("png"))}},
		})
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{"id": "tts-1", "object": "model"},
				map[string]any{"id": "dall-e-3", "object": "model"},
			},
		})
	})
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)

	opts = append([]testsupport.ConfigOption{testsupport.WithServer(env.server.URL), testsupport.WithStubbedMedia()}, opts...)
	env.cfg = testsupport.NewConfig(t, opts...)
	env.configPath = filepath.Join(testsupport.BaseDir(env.cfg), "config.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// runDir returns the single run directory created under kind.
func runDir(t *testing.T, cfg *config.Config, kind string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(cfg.Paths.OutputDir, kind, "*"))
	if err != nil {
		t.Fatalf("glob run dirs: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s run directory, got %v", kind, matches)
	}
	return matches[0]
}
