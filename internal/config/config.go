package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/lberthe/scribe/internal/domain"
)

type Config struct {
	Mode      string `mapstructure:"mode"`
	Port      int    `mapstructure:"port"`
	Secret    string `mapstructure:"secret"`
	ModelPath string `mapstructure:"model_path"`

	ReadLimit  int64 `mapstructure:"read_limit"`
	SendBuffer int   `mapstructure:"send_buffer"`
	SampleRate int   `mapstructure:"sample_rate"`

	FrameLimit    int           `mapstructure:"frame_limit"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`

	// Meetings seeds the catalog in place of the administrative
	// component that would normally own them.
	Meetings []domain.Meeting `mapstructure:"meetings"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("model_path", "models/vosk-model-small-fr-0.22")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("send_buffer", 32)
	v.SetDefault("sample_rate", 16000)
	v.SetDefault("frame_limit", 200)
	v.SetDefault("frame_interval", "1s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Model: %s\n", cfg.Mode, cfg.Port, cfg.ModelPath)
	return &cfg, nil
}
