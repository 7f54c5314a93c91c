package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Export    ExportConfig    `mapstructure:"export"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type AnthropicConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

type AnalyzerConfig struct {
	MaxFiles  int `mapstructure:"max_files"`  // deep 模式默认文件上限
	TimeoutMs int `mapstructure:"timeout_ms"` // 单次分析默认超时
}

type ExportConfig struct {
	TempDir       string `mapstructure:"temp_dir"`       // 导出文件根目录，空则用系统临时目录
	ExpireMinutes int    `mapstructure:"expire_minutes"` // 导出文件过期时间（分钟）
	SweepSchedule string `mapstructure:"sweep_schedule"` // cron 表达式，如 "@every 10m"
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Anthropic.MaxTokens == 0 {
		cfg.Anthropic.MaxTokens = 8192
	}
	if cfg.Anthropic.TimeoutSeconds == 0 {
		cfg.Anthropic.TimeoutSeconds = 300
	}
	if cfg.Analyzer.MaxFiles == 0 {
		cfg.Analyzer.MaxFiles = 500
	}
	if cfg.Analyzer.TimeoutMs == 0 {
		cfg.Analyzer.TimeoutMs = 300000
	}
	if cfg.Export.ExpireMinutes == 0 {
		cfg.Export.ExpireMinutes = 60
	}
	if cfg.Export.SweepSchedule == "" {
		cfg.Export.SweepSchedule = "@every 10m"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
