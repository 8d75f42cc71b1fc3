package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// LLMServer is a fake chat-completion endpoint.
type LLMServer struct {
	*httptest.Server
	requests atomic.Int64
}

// Requests returns how many completion requests were served.
func (s *LLMServer) Requests() int {
	return int(s.requests.Load())
}

// NewLLMServer starts a chat-completion server whose reply content is
// produced by reply from the user prompt. A reply of "" answers 503.
func NewLLMServer(t testing.TB, reply func(prompt string) string) *LLMServer {
	t.Helper()

	srv := &LLMServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.requests.Add(1)
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		prompt := ""
		for _, msg := range req.Messages {
			if msg.Role == "user" {
				prompt = msg.Content
			}
		}
		content := reply(prompt)
		if content == "" {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Dictionary returns a reply function that echoes numbered prompt lines,
// replacing any text found in words.
func Dictionary(words map[string]string) func(string) string {
	return func(prompt string) string {
		if strings.Contains(prompt, `{"ok":true}`) {
			return `{"ok":true}`
		}
		_, body, found := strings.Cut(prompt, "\n\n")
		if !found {
			return "OK"
		}
		lines := strings.Split(body, "\n")
		for i, line := range lines {
			num, text, _ := strings.Cut(line, ". ")
			if translated, ok := words[text]; ok {
				text = translated
			}
			lines[i] = num + ". " + text
		}
		return strings.Join(lines, "\n")
	}
}
