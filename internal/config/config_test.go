package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/af")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8000" {
		t.Fatalf("Port = %q, want 8000", cfg.Port)
	}
	if want := filepath.Join("/tmp/af", "agentforge.db"); cfg.DBPath != want {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if cfg.Retrieval.K != 3 {
		t.Fatalf("Retrieval.K = %d, want 3", cfg.Retrieval.K)
	}
	if cfg.Chat.Temperature != 0.7 {
		t.Fatalf("Chat.Temperature = %v, want 0.7", cfg.Chat.Temperature)
	}
	if cfg.Embedding.Provider != ProviderOpenAI {
		t.Fatalf("Embedding.Provider = %q, want %q", cfg.Embedding.Provider, ProviderOpenAI)
	}
	if cfg.Training.Launcher != LauncherProcess {
		t.Fatalf("Training.Launcher = %q, want %q", cfg.Training.Launcher, LauncherProcess)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("CHAT_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("TRANSCRIPT_ENABLED", "off")
	t.Setenv("RETRIEVAL_K", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != ProviderGemini || cfg.Embedding.Provider != ProviderGemini {
		t.Fatalf("providers = %q/%q, want gemini", cfg.LLM.Provider, cfg.Embedding.Provider)
	}
	if !cfg.ProviderConfigured() {
		t.Fatal("ProviderConfigured() = false with GEMINI_API_KEY set")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.Chat.RateLimitWindow != 30*time.Second {
		t.Fatalf("RateLimitWindow = %v, want 30s", cfg.Chat.RateLimitWindow)
	}
	if cfg.Transcript.Enabled {
		t.Fatal("Transcript.Enabled = true, want false")
	}
	if cfg.Retrieval.K != 3 {
		t.Fatalf("Retrieval.K = %d, want fallback 3", cfg.Retrieval.K)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"unknown store", map[string]string{"STORE_DRIVER": "mongo"}, "STORE_DRIVER"},
		{"unknown vector driver", map[string]string{"VECTOR_DRIVER": "faiss"}, "VECTOR_DRIVER"},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "cohere"}, "LLM_PROVIDER"},
		{"zero k", map[string]string{"RETRIEVAL_K": "0"}, "RETRIEVAL_K"},
		{"zero window", map[string]string{"CHAT_RATE_LIMIT_WINDOW": "0s"}, "CHAT_RATE_LIMIT_WINDOW"},
		{"unknown launcher", map[string]string{"TRAINING_LAUNCHER": "k8s"}, "TRAINING_LAUNCHER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"https://agents.example.com", false},
	}
	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.url}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Fatalf("IsDevelopment(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
