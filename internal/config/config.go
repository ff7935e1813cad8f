package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type HotkeyConfig struct {
	Key string `yaml:"key"`
}

type CaptureConfig struct {
	Mode          string `yaml:"mode"` // bus, mock
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	MinDurationMS int    `yaml:"min_duration_ms"`
	MaxDurationMS int    `yaml:"max_duration_ms"`
}

type TranscribeConfig struct {
	Mode      string `yaml:"mode"` // mock, exec, openai
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Language  string `yaml:"language"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type RefineConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Strict      bool    `yaml:"strict"`
	Mode        string  `yaml:"mode"` // mock, openai
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMS   int     `yaml:"timeout_ms"`
}

type TranslateConfig struct {
	Mode            string   `yaml:"mode"` // mock, openai
	Model           string   `yaml:"model"`
	APIKey          string   `yaml:"api_key"`
	BaseURL         string   `yaml:"base_url"`
	SourceLanguage  string   `yaml:"source_language"`
	TargetLanguages []string `yaml:"target_languages"`
	MaxTokens       int      `yaml:"max_tokens"`
	Temperature     float64  `yaml:"temperature"`
	TimeoutMS       int      `yaml:"timeout_ms"`
}

type DispatchConfig struct {
	Mode            string `yaml:"mode"` // osc, mock
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MaxChars        int    `yaml:"max_chars"`
	Immediate       bool   `yaml:"immediate"`
	Notify          bool   `yaml:"notify"`
	IncludeOriginal bool   `yaml:"include_original"`
	Combine         bool   `yaml:"combine"`
	TimeoutMS       int    `yaml:"timeout_ms"`
}

type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms"`
}

type SessionStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	RuntimeName  string             `yaml:"runtime_name"`
	Environment  string             `yaml:"environment"`
	HTTP         HTTPConfig         `yaml:"http"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Bus          BusConfig          `yaml:"bus"`
	Hotkey       HotkeyConfig       `yaml:"hotkey"`
	Capture      CaptureConfig      `yaml:"capture"`
	Transcribe   TranscribeConfig   `yaml:"transcribe"`
	Refine       RefineConfig       `yaml:"refine"`
	Translate    TranslateConfig    `yaml:"translate"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	Retry        RetryConfig        `yaml:"retry"`
	SessionStore SessionStoreConfig `yaml:"session_store"`
}

func Default() Config {
	return Config{
		RuntimeName: "vrct-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Hotkey: HotkeyConfig{
			Key: "k",
		},
		Capture: CaptureConfig{
			Mode:          "bus",
			SampleRate:    16000,
			Channels:      1,
			MinDurationMS: 500,
			MaxDurationMS: 30000,
		},
		Transcribe: TranscribeConfig{
			Mode:      "mock",
			Model:     "whisper-1",
			TimeoutMS: 45000,
		},
		Refine: RefineConfig{
			Enabled:     true,
			Strict:      false,
			Mode:        "mock",
			Model:       "deepseek-chat",
			BaseURL:     "https://api.deepseek.com",
			MaxTokens:   500,
			Temperature: 0.1,
			TimeoutMS:   30000,
		},
		Translate: TranslateConfig{
			Mode:            "mock",
			Model:           "deepseek-chat",
			BaseURL:         "https://api.deepseek.com",
			SourceLanguage:  "zh",
			TargetLanguages: []string{"en"},
			MaxTokens:       1000,
			Temperature:     0.3,
			TimeoutMS:       30000,
		},
		Dispatch: DispatchConfig{
			Mode:            "osc",
			Host:            "127.0.0.1",
			Port:            9000,
			MaxChars:        144,
			Immediate:       true,
			Notify:          false,
			IncludeOriginal: true,
			Combine:         true,
			TimeoutMS:       5000,
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMS: 500,
			MaxBackoffMS:     5000,
		},
		SessionStore: SessionStoreConfig{
			Path:          "./data/vrct-sessions.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "VRCT_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VRCT_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VRCT_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VRCT_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VRCT_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VRCT_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VRCT_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "VRCT_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "VRCT_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VRCT_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "VRCT_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "VRCT_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VRCT_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VRCT_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VRCT_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VRCT_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VRCT_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Hotkey.Key, "VRCT_HOTKEY")
	overrideString(&cfg.Capture.Mode, "VRCT_CAPTURE_MODE")
	overrideInt(&cfg.Capture.SampleRate, "VRCT_CAPTURE_SAMPLE_RATE")
	overrideInt(&cfg.Capture.Channels, "VRCT_CAPTURE_CHANNELS")
	overrideInt(&cfg.Capture.MinDurationMS, "VRCT_CAPTURE_MIN_DURATION_MS")
	overrideInt(&cfg.Capture.MaxDurationMS, "VRCT_CAPTURE_MAX_DURATION_MS")
	overrideString(&cfg.Transcribe.Mode, "VRCT_TRANSCRIBE_MODE")
	overrideString(&cfg.Transcribe.Command, "VRCT_TRANSCRIBE_COMMAND")
	overrideString(&cfg.Transcribe.ModelPath, "VRCT_TRANSCRIBE_MODEL_PATH")
	overrideString(&cfg.Transcribe.Model, "VRCT_TRANSCRIBE_MODEL")
	overrideString(&cfg.Transcribe.APIKey, "VRCT_TRANSCRIBE_API_KEY")
	overrideString(&cfg.Transcribe.BaseURL, "VRCT_TRANSCRIBE_BASE_URL")
	overrideString(&cfg.Transcribe.Language, "VRCT_TRANSCRIBE_LANGUAGE")
	overrideInt(&cfg.Transcribe.TimeoutMS, "VRCT_TRANSCRIBE_TIMEOUT_MS")
	overrideBool(&cfg.Refine.Enabled, "VRCT_REFINE_ENABLED")
	overrideBool(&cfg.Refine.Strict, "VRCT_REFINE_STRICT")
	overrideString(&cfg.Refine.Mode, "VRCT_REFINE_MODE")
	overrideString(&cfg.Refine.Model, "VRCT_REFINE_MODEL")
	overrideString(&cfg.Refine.APIKey, "VRCT_REFINE_API_KEY")
	overrideString(&cfg.Refine.BaseURL, "VRCT_REFINE_BASE_URL")
	overrideInt(&cfg.Refine.MaxTokens, "VRCT_REFINE_MAX_TOKENS")
	overrideFloat(&cfg.Refine.Temperature, "VRCT_REFINE_TEMPERATURE")
	overrideInt(&cfg.Refine.TimeoutMS, "VRCT_REFINE_TIMEOUT_MS")
	overrideString(&cfg.Translate.Mode, "VRCT_TRANSLATE_MODE")
	overrideString(&cfg.Translate.Model, "VRCT_TRANSLATE_MODEL")
	overrideString(&cfg.Translate.APIKey, "VRCT_TRANSLATE_API_KEY")
	overrideString(&cfg.Translate.BaseURL, "VRCT_TRANSLATE_BASE_URL")
	overrideString(&cfg.Translate.SourceLanguage, "VRCT_SOURCE_LANGUAGE")
	overrideStringSlice(&cfg.Translate.TargetLanguages, "VRCT_TARGET_LANGUAGES")
	overrideInt(&cfg.Translate.MaxTokens, "VRCT_TRANSLATE_MAX_TOKENS")
	overrideFloat(&cfg.Translate.Temperature, "VRCT_TRANSLATE_TEMPERATURE")
	overrideInt(&cfg.Translate.TimeoutMS, "VRCT_TRANSLATE_TIMEOUT_MS")
	overrideString(&cfg.Dispatch.Mode, "VRCT_DISPATCH_MODE")
	overrideString(&cfg.Dispatch.Host, "VRCT_OSC_HOST")
	overrideInt(&cfg.Dispatch.Port, "VRCT_OSC_PORT")
	overrideInt(&cfg.Dispatch.MaxChars, "VRCT_DISPATCH_MAX_CHARS")
	overrideBool(&cfg.Dispatch.Immediate, "VRCT_DISPATCH_IMMEDIATE")
	overrideBool(&cfg.Dispatch.Notify, "VRCT_DISPATCH_NOTIFY")
	overrideBool(&cfg.Dispatch.IncludeOriginal, "VRCT_DISPATCH_INCLUDE_ORIGINAL")
	overrideBool(&cfg.Dispatch.Combine, "VRCT_DISPATCH_COMBINE")
	overrideInt(&cfg.Dispatch.TimeoutMS, "VRCT_DISPATCH_TIMEOUT_MS")
	overrideInt(&cfg.Retry.MaxAttempts, "VRCT_RETRY_MAX_ATTEMPTS")
	overrideInt(&cfg.Retry.InitialBackoffMS, "VRCT_RETRY_INITIAL_BACKOFF_MS")
	overrideInt(&cfg.Retry.MaxBackoffMS, "VRCT_RETRY_MAX_BACKOFF_MS")
	overrideString(&cfg.SessionStore.Path, "VRCT_SESSION_STORE_PATH")
	overrideString(&cfg.SessionStore.RetentionMode, "VRCT_SESSION_STORE_RETENTION_MODE")
	overrideInt(&cfg.SessionStore.RetentionDays, "VRCT_SESSION_STORE_RETENTION_DAYS")
	overrideInt(&cfg.SessionStore.MaxSessions, "VRCT_SESSION_STORE_MAX_SESSIONS")
	overrideBool(&cfg.SessionStore.VacuumOnStart, "VRCT_SESSION_STORE_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Hotkey.Key == "" {
		return errors.New("hotkey.key must not be empty")
	}
	switch cfg.Capture.Mode {
	case "bus", "mock":
	default:
		return errors.New("capture.mode must be one of bus|mock")
	}
	if cfg.Capture.SampleRate <= 0 {
		return errors.New("capture.sample_rate must be positive")
	}
	if cfg.Capture.Channels <= 0 {
		return errors.New("capture.channels must be positive")
	}
	if cfg.Capture.MinDurationMS < 0 {
		return errors.New("capture.min_duration_ms must be >= 0")
	}
	if cfg.Capture.MaxDurationMS > 0 && cfg.Capture.MaxDurationMS <= cfg.Capture.MinDurationMS {
		return errors.New("capture.max_duration_ms must be greater than min_duration_ms")
	}
	switch cfg.Transcribe.Mode {
	case "mock", "exec", "openai":
	default:
		return errors.New("transcribe.mode must be one of mock|exec|openai")
	}
	if cfg.Transcribe.Mode == "exec" && cfg.Transcribe.Command == "" {
		return errors.New("transcribe.command must be set when mode=exec")
	}
	if cfg.Transcribe.Mode == "openai" && cfg.Transcribe.APIKey == "" {
		return errors.New("transcribe.api_key must be set when mode=openai")
	}
	if cfg.Refine.Enabled {
		switch cfg.Refine.Mode {
		case "mock", "openai":
		default:
			return errors.New("refine.mode must be one of mock|openai")
		}
		if cfg.Refine.Mode == "openai" && cfg.Refine.APIKey == "" {
			return errors.New("refine.api_key must be set when mode=openai")
		}
		if cfg.Refine.MaxTokens < 0 {
			return errors.New("refine.max_tokens must be >= 0")
		}
	}
	switch cfg.Translate.Mode {
	case "mock", "openai":
	default:
		return errors.New("translate.mode must be one of mock|openai")
	}
	if cfg.Translate.Mode == "openai" && cfg.Translate.APIKey == "" {
		return errors.New("translate.api_key must be set when mode=openai")
	}
	if cfg.Translate.SourceLanguage == "" {
		return errors.New("translate.source_language must not be empty")
	}
	if len(cfg.Translate.TargetLanguages) == 0 {
		return errors.New("translate.target_languages must not be empty")
	}
	switch cfg.Dispatch.Mode {
	case "osc", "mock":
	default:
		return errors.New("dispatch.mode must be one of osc|mock")
	}
	if cfg.Dispatch.Host == "" {
		return errors.New("dispatch.host must not be empty")
	}
	if cfg.Dispatch.Port <= 0 || cfg.Dispatch.Port > 65535 {
		return errors.New("dispatch.port must be between 1 and 65535")
	}
	if cfg.Dispatch.MaxChars <= 0 {
		return errors.New("dispatch.max_chars must be positive")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if cfg.Retry.InitialBackoffMS <= 0 {
		return errors.New("retry.initial_backoff_ms must be positive")
	}
	if cfg.Retry.MaxBackoffMS < cfg.Retry.InitialBackoffMS {
		return errors.New("retry.max_backoff_ms must be >= initial_backoff_ms")
	}
	if cfg.SessionStore.Path == "" {
		return errors.New("session_store.path must not be empty")
	}
	switch cfg.SessionStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("session_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.SessionStore.RetentionDays < 0 {
		return errors.New("session_store.retention_days must be >= 0")
	}
	return nil
}
