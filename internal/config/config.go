package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Corpus CorpusConfig
	Chat   ChatConfig
	AI     AIConfig
	Speech SpeechConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig(ai)
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Log:    loadLogConfig(),
		Corpus: loadCorpusConfig(),
		Chat:   chat,
		AI:     ai,
		Speech: speech,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Format:     getEnvOrDefault("LOG_FORMAT", "console"),
		OutputPath: strings.TrimSpace(os.Getenv("LOG_OUTPUT_PATH")),
	}
}

// CorpusConfig 描述语料压缩包所在目录与解压目录。
type CorpusConfig struct {
	DataDir    string
	ExtractDir string
}

func loadCorpusConfig() CorpusConfig {
	return CorpusConfig{
		DataDir:    getEnvOrDefault("CORPUS_DATA_DIR", "data"),
		ExtractDir: getEnvOrDefault("CORPUS_EXTRACT_DIR", "extracted_data"),
	}
}

// ChatConfig 描述会话的固定文案与默认模型。
type ChatConfig struct {
	SystemPrompt string
	Greeting     string
	DefaultModel string
}

const (
	defaultSystemPrompt = "You are a helpful counseling assistant."
	defaultGreeting     = "안녕하세요! 저는 감성 챗봇입니다."
)

func loadChatConfig(ai AIConfig) (ChatConfig, error) {
	models := ai.AllModels()
	defaultModel := getEnvOrDefault("CHAT_DEFAULT_MODEL", "")
	if defaultModel == "" && len(models) > 0 {
		defaultModel = models[0]
	}
	if _, ok := ai.ProviderFor(defaultModel); !ok {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_DEFAULT_MODEL value %q: not one of %v", defaultModel, models)
	}

	return ChatConfig{
		SystemPrompt: getEnvOrDefault("CHAT_SYSTEM_PROMPT", defaultSystemPrompt),
		Greeting:     getEnvOrDefault("CHAT_GREETING", defaultGreeting),
		DefaultModel: defaultModel,
	}, nil
}

// AIConfig 描述大模型相关配置。调用凭证由请求方提供，不在此处配置。
type AIConfig struct {
	OpenAIModels  []string
	ArkModels     []string
	OpenAIBaseURL string
	ArkBaseURL    string
	ArkRegion     string
	Temperature   *float64
	TopP          *float64
	MaxTokens     *int
	Timeout       time.Duration
}

// AllModels 返回可选模型列表，OpenAI 模型在前。
func (c AIConfig) AllModels() []string {
	models := make([]string, 0, len(c.OpenAIModels)+len(c.ArkModels))
	models = append(models, c.OpenAIModels...)
	models = append(models, c.ArkModels...)
	return models
}

// ProviderFor 返回模型所属的服务商。
func (c AIConfig) ProviderFor(model string) (string, bool) {
	for _, m := range c.OpenAIModels {
		if m == model {
			return ProviderOpenAI, true
		}
	}
	for _, m := range c.ArkModels {
		if m == model {
			return ProviderArk, true
		}
	}
	return "", false
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 0)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		OpenAIModels:  parseListEnv("AI_MODELS", []string{"gpt-3.5-turbo", "gpt-4"}),
		ArkModels:     parseListEnv("AI_ARK_MODELS", nil),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		ArkBaseURL:    getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:     getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
		Timeout:       timeout,
	}

	if len(cfg.AllModels()) == 0 {
		return AIConfig{}, fmt.Errorf("no chat models configured: set AI_MODELS or AI_ARK_MODELS")
	}
	return cfg, nil
}

// SpeechConfig 描述语音合成相关配置
type SpeechConfig struct {
	AppID          string
	AccessToken    string
	Endpoint       string
	FemaleVoice    string
	MaleVoice      string
	TTSSpeed       float32
	TTSVolume      float32
	TTSLanguage    string
	OutputFile     string
	EmotionEnabled bool
	Timeout        int
	Enabled        bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	// 解析超时设置
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	// 解析TTS速度和音量
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	emotionEnabled, err := parseBoolEnv("SPEECH_TTS_EMOTION", true)
	if err != nil {
		return SpeechConfig{}, err
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		accessToken = strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	}

	return SpeechConfig{
		AppID:          appID,
		AccessToken:    accessToken,
		Endpoint:       getEnvOrDefault("SPEECH_TTS_ENDPOINT", "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"),
		FemaleVoice:    getEnvOrDefault("SPEECH_VOICE_FEMALE", "zh_female_vv_uranus_bigtts"),
		MaleVoice:      getEnvOrDefault("SPEECH_VOICE_MALE", "zh_male_M392_conversation_wvae_bigtts"),
		TTSSpeed:       ttsSpeed,
		TTSVolume:      ttsVolume,
		TTSLanguage:    getEnvOrDefault("SPEECH_TTS_LANGUAGE", "ko-KR"),
		OutputFile:     getEnvOrDefault("SPEECH_OUTPUT_FILE", "response.mp3"),
		EmotionEnabled: emotionEnabled,
		Timeout:        timeoutSeconds,
		Enabled:        appID != "" && accessToken != "",
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseListEnv 解析逗号分隔的列表，忽略空项与重复项。
func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return append([]string(nil), defaultValue...)
	}

	var items []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}
	return items
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
