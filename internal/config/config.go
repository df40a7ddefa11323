package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Exchange   ExchangeConfig
	Bot        BotConfig
	Risk       RiskConfig
	Indicators IndicatorConfig
	Runtime    RuntimeConfig
}

type ExchangeConfig struct {
	BaseUrl     string
	WSPublicURL string
	AccountType string
	ApiKey      string
	Secret      string
	PriceMaxAge time.Duration
}

type BotConfig struct {
	Pairs            []string
	QuoteAsset       string
	Interval         string
	CandleCount      int
	ScoreMinEntry    int
	VolumeMultiplier float64
	OrderValueUSD    float64
	MinBalanceUSD    float64
	CheckInterval    time.Duration
	ErrorCooldown    time.Duration
}

type RiskConfig struct {
	TakeProfitPct     float64
	StopLossPct       float64
	MaxSLVolatility   float64
	LossTimeExpansion float64
	MaxHold           time.Duration
	VolatilityCandles int
}

type IndicatorConfig struct {
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	SMAShort        int
	SMALong         int
	EMAShort        int
	EMALong         int
	BBPeriod        int
	BBDeviations    float64
	StochKPeriod    int
	StochDPeriod    int
	VolumeAvgPeriod int
}

type RuntimeConfig struct {
	Log        LogConfig
	APIAddr    string
	JournalDSN string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	Console    bool
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom reads config.{yaml,json,toml} from dir. A missing file is not an
// error: defaults and SPOTBOT_* environment variables still apply.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetEnvPrefix("spotbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Не удалось прочитать конфигурацию: %w", err)
		}
	}

	cfg := &Config{}

	cfg.Exchange = ExchangeConfig{
		BaseUrl:     v.GetString("exchange.base_url"),
		WSPublicURL: v.GetString("exchange.ws_public_url"),
		AccountType: v.GetString("exchange.account_type"),
		ApiKey:      envSub(v, "exchange.api_key"),
		Secret:      envSub(v, "exchange.secret"),
		PriceMaxAge: v.GetDuration("exchange.price_max_age"),
	}

	cfg.Bot = BotConfig{
		Pairs:            normalizePairs(v.GetStringSlice("bot.pairs")),
		QuoteAsset:       strings.ToUpper(v.GetString("bot.quote_asset")),
		Interval:         v.GetString("bot.interval"),
		CandleCount:      v.GetInt("bot.candle_count"),
		ScoreMinEntry:    v.GetInt("bot.score_min_entry"),
		VolumeMultiplier: v.GetFloat64("bot.volume_multiplier"),
		OrderValueUSD:    v.GetFloat64("bot.order_value_usd"),
		MinBalanceUSD:    v.GetFloat64("bot.min_balance_usd"),
		CheckInterval:    v.GetDuration("bot.check_interval"),
		ErrorCooldown:    v.GetDuration("bot.error_cooldown"),
	}

	cfg.Risk = RiskConfig{
		TakeProfitPct:     v.GetFloat64("risk.take_profit_pct"),
		StopLossPct:       v.GetFloat64("risk.stop_loss_pct"),
		MaxSLVolatility:   v.GetFloat64("risk.max_sl_volatility"),
		LossTimeExpansion: v.GetFloat64("risk.loss_time_expansion"),
		MaxHold:           v.GetDuration("risk.max_hold"),
		VolatilityCandles: v.GetInt("risk.volatility_candles"),
	}

	cfg.Indicators = IndicatorConfig{
		RSIPeriod:       v.GetInt("indicators.rsi_period"),
		MACDFast:        v.GetInt("indicators.macd_fast"),
		MACDSlow:        v.GetInt("indicators.macd_slow"),
		MACDSignal:      v.GetInt("indicators.macd_signal"),
		SMAShort:        v.GetInt("indicators.sma_short"),
		SMALong:         v.GetInt("indicators.sma_long"),
		EMAShort:        v.GetInt("indicators.ema_short"),
		EMALong:         v.GetInt("indicators.ema_long"),
		BBPeriod:        v.GetInt("indicators.bb_period"),
		BBDeviations:    v.GetFloat64("indicators.bb_deviations"),
		StochKPeriod:    v.GetInt("indicators.stoch_k_period"),
		StochDPeriod:    v.GetInt("indicators.stoch_d_period"),
		VolumeAvgPeriod: v.GetInt("indicators.volume_avg_period"),
	}

	cfg.Runtime = RuntimeConfig{
		Log: LogConfig{
			Level:      v.GetString("runtime.log.level"),
			Format:     v.GetString("runtime.log.format"),
			File:       v.GetString("runtime.log.file"),
			Console:    v.GetBool("runtime.log.console"),
			MaxSize:    v.GetInt("runtime.log.max_size"),
			MaxBackups: v.GetInt("runtime.log.max_backups"),
			MaxAge:     v.GetInt("runtime.log.max_age"),
			Compress:   v.GetBool("runtime.log.compress"),
		},
		APIAddr:    v.GetString("runtime.api_addr"),
		JournalDSN: envSub(v, "runtime.journal_dsn"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.base_url", "https://api.bybit.com")
	v.SetDefault("exchange.ws_public_url", "wss://stream.bybit.com/v5/public/spot")
	v.SetDefault("exchange.account_type", "UNIFIED")
	v.SetDefault("exchange.api_key", "${BYBIT_API_KEY}")
	v.SetDefault("exchange.secret", "${BYBIT_API_SECRET}")
	v.SetDefault("exchange.price_max_age", "5s")

	v.SetDefault("bot.pairs", []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "SOLUSDT"})
	v.SetDefault("bot.quote_asset", "USDT")
	v.SetDefault("bot.interval", "5m")
	v.SetDefault("bot.candle_count", 100)
	v.SetDefault("bot.score_min_entry", 65)
	v.SetDefault("bot.volume_multiplier", 1.5)
	v.SetDefault("bot.order_value_usd", 45)
	v.SetDefault("bot.min_balance_usd", 6)
	v.SetDefault("bot.check_interval", "30s")
	v.SetDefault("bot.error_cooldown", "60s")

	v.SetDefault("risk.take_profit_pct", 0.015)
	v.SetDefault("risk.stop_loss_pct", 0.01)
	v.SetDefault("risk.max_sl_volatility", 0.03)
	v.SetDefault("risk.loss_time_expansion", 1.5)
	v.SetDefault("risk.max_hold", "30m")
	v.SetDefault("risk.volatility_candles", 20)

	v.SetDefault("indicators.rsi_period", 10)
	v.SetDefault("indicators.macd_fast", 10)
	v.SetDefault("indicators.macd_slow", 26)
	v.SetDefault("indicators.macd_signal", 9)
	v.SetDefault("indicators.sma_short", 9)
	v.SetDefault("indicators.sma_long", 21)
	v.SetDefault("indicators.ema_short", 6)
	v.SetDefault("indicators.ema_long", 18)
	v.SetDefault("indicators.bb_period", 20)
	v.SetDefault("indicators.bb_deviations", 1.8)
	v.SetDefault("indicators.stoch_k_period", 14)
	v.SetDefault("indicators.stoch_d_period", 3)
	v.SetDefault("indicators.volume_avg_period", 20)

	v.SetDefault("runtime.log.level", "info")
	v.SetDefault("runtime.log.format", "text")
	v.SetDefault("runtime.log.file", "stdout")
	v.SetDefault("runtime.log.console", true)
	v.SetDefault("runtime.log.max_size", 5)
	v.SetDefault("runtime.log.max_backups", 3)
	v.SetDefault("runtime.log.max_age", 30)
	v.SetDefault("runtime.api_addr", "")
	v.SetDefault("runtime.journal_dsn", "")
}

func (c *Config) Validate() error {
	if len(c.Bot.Pairs) == 0 {
		return errors.New("Не задан список торговых пар.")
	}
	if c.Bot.QuoteAsset == "" {
		return errors.New("Не задан quote_asset.")
	}
	for _, pair := range c.Bot.Pairs {
		if !strings.HasSuffix(pair, c.Bot.QuoteAsset) || pair == c.Bot.QuoteAsset {
			return fmt.Errorf("Пара %s не котируется в %s.", pair, c.Bot.QuoteAsset)
		}
	}
	if c.Bot.CandleCount <= 0 {
		return fmt.Errorf("Некорректное значение candle_count: %d", c.Bot.CandleCount)
	}
	if c.Bot.OrderValueUSD <= 0 {
		return fmt.Errorf("Некорректное значение order_value_usd: %f", c.Bot.OrderValueUSD)
	}
	if c.Bot.CheckInterval <= 0 {
		return fmt.Errorf("Некорректное значение check_interval: %s", c.Bot.CheckInterval)
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.TakeProfitPct <= 0 {
		return errors.New("stop_loss_pct и take_profit_pct должны быть больше нуля.")
	}
	if c.Risk.StopLossPct > c.Risk.MaxSLVolatility {
		return fmt.Errorf("stop_loss_pct (%f) больше max_sl_volatility (%f).", c.Risk.StopLossPct, c.Risk.MaxSLVolatility)
	}
	if c.Risk.LossTimeExpansion < 1 {
		return fmt.Errorf("Некорректное значение loss_time_expansion: %f", c.Risk.LossTimeExpansion)
	}
	if c.Risk.MaxHold <= 0 {
		return fmt.Errorf("Некорректное значение max_hold: %s", c.Risk.MaxHold)
	}
	if c.Risk.VolatilityCandles < 2 {
		return fmt.Errorf("Некорректное значение volatility_candles: %d", c.Risk.VolatilityCandles)
	}

	periods := map[string]int{
		"rsi_period":        c.Indicators.RSIPeriod,
		"macd_fast":         c.Indicators.MACDFast,
		"macd_slow":         c.Indicators.MACDSlow,
		"macd_signal":       c.Indicators.MACDSignal,
		"sma_short":         c.Indicators.SMAShort,
		"sma_long":          c.Indicators.SMALong,
		"ema_short":         c.Indicators.EMAShort,
		"ema_long":          c.Indicators.EMALong,
		"bb_period":         c.Indicators.BBPeriod,
		"stoch_k_period":    c.Indicators.StochKPeriod,
		"stoch_d_period":    c.Indicators.StochDPeriod,
		"volume_avg_period": c.Indicators.VolumeAvgPeriod,
	}
	for name, value := range periods {
		if value <= 0 {
			return fmt.Errorf("Некорректное значение indicators.%s: %d", name, value)
		}
	}

	return nil
}

// BaseAsset strips the configured quote asset from a pair symbol.
func (c *Config) BaseAsset(pair string) string {
	return strings.TrimSuffix(pair, c.Bot.QuoteAsset)
}

func normalizePairs(pairs []string) []string {
	result := make([]string, 0, len(pairs))
	for _, item := range pairs {
		// env values arrive as one comma separated string
		for _, pair := range strings.Split(item, ",") {
			pair = strings.ToUpper(strings.TrimSpace(pair))
			if pair != "" {
				result = append(result, pair)
			}
		}
	}
	return result
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

func envSub(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		return ""
	}

	return envPattern.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
