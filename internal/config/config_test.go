package config

import "testing"

func TestLoad_FailsFastWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AI_CHAT_URL", "http://localhost:11434")
	t.Setenv("AI_CHAT_EXTRACT_MODEL", "llama3")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoad_FailsFastWithoutModelEndpoint(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/graph")
	t.Setenv("AI_CHAT_URL", "")
	t.Setenv("AI_CHAT_EXTRACT_MODEL", "llama3")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing AI_CHAT_URL")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/graph")
	t.Setenv("AI_CHAT_URL", "http://localhost:11434")
	t.Setenv("AI_CHAT_EXTRACT_MODEL", "llama3")
	t.Setenv("AI_ADAPTER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AIAdapter != "openai" {
		t.Fatalf("expected default adapter openai, got %q", cfg.AIAdapter)
	}
	if cfg.MaxWords != 600 {
		t.Fatalf("expected default chunk size 600, got %d", cfg.MaxWords)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("expected default retry budget 3, got %d", cfg.MaxRetries)
	}
	if cfg.EmbedDimensions != 1536 {
		t.Fatalf("expected default embedding dimensions 1536, got %d", cfg.EmbedDimensions)
	}
}

func TestLoad_EmbedDimensionsOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/graph")
	t.Setenv("AI_CHAT_URL", "http://localhost:11434")
	t.Setenv("AI_CHAT_EXTRACT_MODEL", "llama3")
	t.Setenv("AI_ADAPTER", "ollama")
	t.Setenv("AI_EMBED_DIMENSIONS", "768")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EmbedDimensions != 768 {
		t.Fatalf("expected embedding dimensions 768, got %d", cfg.EmbedDimensions)
	}
}

func TestLoad_RejectsUnknownAdapter(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/graph")
	t.Setenv("AI_CHAT_URL", "http://localhost:11434")
	t.Setenv("AI_CHAT_EXTRACT_MODEL", "llama3")
	t.Setenv("AI_ADAPTER", "anthropic")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown adapter")
	}
}
