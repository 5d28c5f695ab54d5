package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Stream    StreamConfig    `yaml:"stream"`
	Movement  MovementConfig  `yaml:"movement"`
	TimeScale TimeScaleConfig `yaml:"timescale"`
	Progress  ProgressConfig  `yaml:"progress"`
	Sim       SimConfig       `yaml:"sim"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Journal   JournalConfig   `yaml:"journal"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level"`
}

// AnchorConfig точка, задающая высоту и ориентацию фронтира
type AnchorConfig struct {
	Y   float64 `yaml:"y"`
	Yaw float64 `yaml:"yaw"`
}

type StreamConfig struct {
	SegmentCatalog        []string      `yaml:"segment_catalog"`
	SegmentLength         float64       `yaml:"segment_length"`
	WindowSize            int           `yaml:"window_size"`
	PreGenerationDistance float64       `yaml:"pre_generation_distance"`
	AgentClearanceMargin  float64       `yaml:"agent_clearance_margin"`
	AgentLift             float64       `yaml:"agent_lift"`
	AgentTemplate         string        `yaml:"agent_template"`
	FrontierAnchor        *AnchorConfig `yaml:"frontier_anchor"`
	Seed                  int64         `yaml:"seed"`
}

type MovementConfig struct {
	ForwardSpeed    float64 `yaml:"forward_speed"`
	SidewaySpeed    float64 `yaml:"sideway_speed"`
	HorizontalLimit float64 `yaml:"horizontal_limit"`
	InputSmoothTime float64 `yaml:"input_smooth_time"`
	NoiseFrequency  float64 `yaml:"noise_frequency"`
	NoiseAmplitude  float64 `yaml:"noise_amplitude"`
}

type TimeScaleConfig struct {
	NormalScale float64 `yaml:"normal_scale"`
	SlowScale   float64 `yaml:"slow_scale"`
	Duration    float64 `yaml:"duration_seconds"`
	MaxResource float64 `yaml:"max_resource"`
	DrainRate   float64 `yaml:"drain_rate"`
	RegenRate   float64 `yaml:"regen_rate"`
	RegenDelay  float64 `yaml:"regen_delay_seconds"`
	// Каждые AutoEvery секунд прогон включает замедление (0: никогда)
	AutoEvery float64 `yaml:"auto_every_seconds"`
}

type ProgressConfig struct {
	BaseCoinsToWin        int `yaml:"base_coins_to_win"`
	CoinsIncreasePerLevel int `yaml:"coins_increase_per_level"`
	StartLevel            int `yaml:"start_level"`
	// После победы сразу начинать следующий уровень; иначе Run завершается
	AutoNextLevel bool `yaml:"auto_next_level"`
}

type SimConfig struct {
	TickRateHz int    `yaml:"tick_rate_hz"`
	MaxTicks   uint64 `yaml:"max_ticks"` // 0: без ограничения
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто: in-memory шина
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type JournalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			SegmentCatalog:        []string{"straight", "ramp", "gap", "slalom"},
			SegmentLength:         10,
			WindowSize:            3,
			PreGenerationDistance: 20,
			AgentClearanceMargin:  0.75,
			AgentLift:             0.5,
			AgentTemplate:         "runner",
			FrontierAnchor:        &AnchorConfig{},
			Seed:                  1,
		},
		Movement: MovementConfig{
			ForwardSpeed:    5,
			SidewaySpeed:    7,
			HorizontalLimit: 3,
			InputSmoothTime: 0.1,
			NoiseFrequency:  0.5,
			NoiseAmplitude:  1,
		},
		TimeScale: TimeScaleConfig{
			NormalScale: 1,
			SlowScale:   0.2,
			Duration:    2,
			MaxResource: 100,
			DrainRate:   20,
			RegenRate:   10,
			RegenDelay:  1,
		},
		Progress: ProgressConfig{
			BaseCoinsToWin:        10,
			CoinsIncreasePerLevel: 2,
			StartLevel:            1,
			AutoNextLevel:         true,
		},
		Sim: SimConfig{
			TickRateHz: 60,
		},
		EventBus: EventBusConfig{
			Stream:    "RUNNER",
			Retention: 24,
			Buffer:    1024,
		},
		Journal: JournalConfig{
			Path: "data/journal",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "endless-runner",
		},
		LogLevel: "info",
	}
}

// GetRESTPort возвращает порт REST API: config -> env -> default
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "RUNNER_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV RUNNER_CONFIG;
// если и он пуст, возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("RUNNER_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse накладывает YAML на cfg; ключи, которых нет в data, не меняются
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}
