package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subburn/internal/config"
	"subburn/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	server     *testsupport.LLMServer
	configPath string
	workDir    string
}

// setupCLITestEnv isolates HOME and the working directory and writes a config
// file that points at a fake LLM endpoint.
func setupCLITestEnv(t *testing.T, reply func(string) string, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	workDir := filepath.Join(base, "work")
	for _, dir := range []string{homeDir, workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	t.Setenv("HOME", homeDir)
	// Unset rather than empty: dotenv never overrides a variable that exists.
	for _, key := range []string{"DEEPSEEK_API_KEY", "OPENAI_API_KEY", "SUBBURN_API_KEY"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	chdir(t, workDir)

	server := testsupport.NewLLMServer(t, reply)
	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries(), testsupport.WithLLMBaseURL(server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, server: server, configPath: configPath, workDir: workDir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[llm]
provider = %q
api_key = %q
base_url = %q
model = %q

[translation]
source_language = %q
target_language = %q
retry_base_delay_ms = %d
retry_max_delay_ms = %d

[burn]
ffmpeg_binary = %q
verify_output = %t

[cache]
enabled = %t
path = %q

[logging]
level = "error"
dir = %q
`,
		cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model,
		cfg.Translation.SourceLanguage, cfg.Translation.TargetLanguage,
		cfg.Translation.RetryBaseDelayMS, cfg.Translation.RetryMaxDelayMS,
		cfg.Burn.FFmpegBinary, cfg.Burn.VerifyOutput,
		cfg.Cache.Enabled, cfg.Cache.Path,
		cfg.Logging.Dir,
	)
	testsupport.WriteFile(t, path, content)
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restoring working directory failed: %v", err)
		}
	})
}
