package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Broker  BrokerConfig
	Bot     BotConfig
	Runtime RuntimeConfig
}

type BrokerConfig struct {
	BaseUrl  string
	WSUrl    string
	ApiToken string
}

type BotConfig struct {
	Symbols                  []string
	Magic                    int64
	Comment                  string
	Mode                     string
	TriggerR                 float64
	PartialFraction          float64
	RiskPct                  float64
	Retries                  int
	RetryDelay               time.Duration
	PollInterval             time.Duration
	DeviationPoints          int
	DuplicateTolerancePoints int
	AdjustBuyLimitForSpread  bool
	AdjustSellLimitForSpread bool
	CancelUnfilledEOD        bool
	SetupsFile               string
}

type RuntimeConfig struct {
	StateDir    string
	MetricsAddr string
	Log         LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("configs")
		viper.SetConfigName("config")
	}

	viper.SetDefault("bot.mode", "conservative")
	viper.SetDefault("bot.trigger_r", 3.0)
	viper.SetDefault("bot.partial_fraction", 0.5)
	viper.SetDefault("bot.risk_pct", 0.5)
	viper.SetDefault("bot.retries", 5)
	viper.SetDefault("bot.retry_delay", "2s")
	viper.SetDefault("bot.poll_interval", "30s")
	viper.SetDefault("bot.deviation_points", 20)
	viper.SetDefault("bot.duplicate_tolerance_points", 10)
	viper.SetDefault("bot.adjust_buy_limit_for_spread", true)
	viper.SetDefault("bot.cancel_unfilled_eod", true)
	viper.SetDefault("bot.comment", "Sentinel")
	viper.SetDefault("runtime.state_dir", "data")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.Broker = BrokerConfig{
		BaseUrl:  viper.GetString("broker.base_url"),
		WSUrl:    viper.GetString("broker.ws_url"),
		ApiToken: envSub("broker.api_token"),
	}

	cfg.Bot = BotConfig{
		Symbols:                  viper.GetStringSlice("bot.symbols"),
		Magic:                    viper.GetInt64("bot.magic"),
		Comment:                  viper.GetString("bot.comment"),
		Mode:                     normalizeMode(viper.GetString("bot.mode")),
		TriggerR:                 viper.GetFloat64("bot.trigger_r"),
		PartialFraction:          viper.GetFloat64("bot.partial_fraction"),
		RiskPct:                  viper.GetFloat64("bot.risk_pct"),
		Retries:                  viper.GetInt("bot.retries"),
		RetryDelay:               viper.GetDuration("bot.retry_delay"),
		PollInterval:             viper.GetDuration("bot.poll_interval"),
		DeviationPoints:          viper.GetInt("bot.deviation_points"),
		DuplicateTolerancePoints: viper.GetInt("bot.duplicate_tolerance_points"),
		AdjustBuyLimitForSpread:  viper.GetBool("bot.adjust_buy_limit_for_spread"),
		AdjustSellLimitForSpread: viper.GetBool("bot.adjust_sell_limit_for_spread"),
		CancelUnfilledEOD:        viper.GetBool("bot.cancel_unfilled_eod"),
		SetupsFile:               viper.GetString("bot.setups_file"),
	}

	cfg.Runtime = RuntimeConfig{
		StateDir:    viper.GetString("runtime.state_dir"),
		MetricsAddr: viper.GetString("runtime.metrics_addr"),
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	return cfg, nil
}

func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "aggressive":
		return "aggressive"
	default:
		return "conservative"
	}
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
