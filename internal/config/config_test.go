package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT_PATH",
		"CORPUS_DATA_DIR", "CORPUS_EXTRACT_DIR",
		"CHAT_SYSTEM_PROMPT", "CHAT_GREETING", "CHAT_DEFAULT_MODEL",
		"AI_MODELS", "AI_ARK_MODELS", "AI_TEMPERATURE", "AI_TOP_P", "AI_MAX_TOKENS", "AI_TIMEOUT",
		"SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY", "SPEECH_TIMEOUT",
		"SPEECH_TTS_SPEED", "SPEECH_TTS_VOLUME", "SPEECH_TTS_EMOTION", "SPEECH_OUTPUT_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Corpus.DataDir != "data" || cfg.Corpus.ExtractDir != "extracted_data" {
		t.Fatalf("unexpected corpus config %+v", cfg.Corpus)
	}
	if cfg.Chat.SystemPrompt != defaultSystemPrompt || cfg.Chat.Greeting != defaultGreeting {
		t.Fatalf("unexpected chat config %+v", cfg.Chat)
	}
	if cfg.Chat.DefaultModel != "gpt-3.5-turbo" {
		t.Fatalf("unexpected default model %q", cfg.Chat.DefaultModel)
	}
	if got := cfg.AI.AllModels(); len(got) != 2 || got[1] != "gpt-4" {
		t.Fatalf("unexpected models %v", got)
	}
	if cfg.AI.Timeout != 0 {
		t.Fatalf("expected no timeout by default, got %s", cfg.AI.Timeout)
	}
	if cfg.Speech.Enabled {
		t.Fatal("speech must be disabled without credentials")
	}
	if cfg.Speech.OutputFile != "response.mp3" {
		t.Fatalf("unexpected output file %q", cfg.Speech.OutputFile)
	}
}

func TestLoadArkModelsAndProviders(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_MODELS", "gpt-4, gpt-4 ,")
	t.Setenv("AI_ARK_MODELS", "doubao-seed-1-6")
	t.Setenv("CHAT_DEFAULT_MODEL", "doubao-seed-1-6")
	t.Setenv("AI_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if got := cfg.AI.AllModels(); len(got) != 2 {
		t.Fatalf("expected duplicates removed, got %v", got)
	}
	if provider, ok := cfg.AI.ProviderFor("doubao-seed-1-6"); !ok || provider != ProviderArk {
		t.Fatalf("unexpected provider %q ok=%v", provider, ok)
	}
	if provider, ok := cfg.AI.ProviderFor("gpt-4"); !ok || provider != ProviderOpenAI {
		t.Fatalf("unexpected provider %q ok=%v", provider, ok)
	}
	if _, ok := cfg.AI.ProviderFor("gpt-3.5-turbo"); ok {
		t.Fatal("gpt-3.5-turbo should not be configured")
	}
	if cfg.AI.Timeout != 45*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.AI.Timeout)
	}
}

func TestLoadRejectsUnknownDefaultModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_DEFAULT_MODEL", "gpt-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown default model")
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_TEMPERATURE", "warm")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid AI_TEMPERATURE")
	}
}

func TestLoadSpeechEnabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("SPEECH_API_KEY", "token")
	t.Setenv("SPEECH_TTS_EMOTION", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if !cfg.Speech.Enabled || cfg.Speech.AccessToken != "token" {
		t.Fatalf("unexpected speech config %+v", cfg.Speech)
	}
	if cfg.Speech.EmotionEnabled {
		t.Fatal("expected emotion prosody disabled")
	}
}

func TestLoadServerAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
}
