package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Settings are runtime tunables that can change without a restart.
type Settings struct {
	TicketPrefix        string  `mapstructure:"ticketPrefix"`
	AuditListCap        int     `mapstructure:"auditListCap"`
	CreditLowBalance    float64 `mapstructure:"creditLowBalance"`
	LoginRateLimit      int     `mapstructure:"loginRateLimit"`
	FeedbackRateLimit   int     `mapstructure:"feedbackRateLimit"`
	RateLimitWindowSecs int     `mapstructure:"rateLimitWindowSecs"`
}

func DefaultSettings() Settings {
	return Settings{
		TicketPrefix:        "TICKET",
		AuditListCap:        500,
		CreditLowBalance:    10,
		LoginRateLimit:      10,
		FeedbackRateLimit:   30,
		RateLimitWindowSecs: 60,
	}
}

type SettingsHolder struct {
	current atomic.Value // holds Settings
}

// NewStaticSettings returns a holder that never reloads.
func NewStaticSettings(s Settings) *SettingsHolder {
	holder := &SettingsHolder{}
	holder.current.Store(s)
	return holder
}

func NewSettingsHolder(log *zap.Logger) (*SettingsHolder, error) {
	log = log.Named("settings")
	v := viper.New()

	v.SetConfigName("settings")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/itstaffcheck")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ITSC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettings()
	v.SetDefault("settings.ticketPrefix", defaults.TicketPrefix)
	v.SetDefault("settings.auditListCap", defaults.AuditListCap)
	v.SetDefault("settings.creditLowBalance", defaults.CreditLowBalance)
	v.SetDefault("settings.loginRateLimit", defaults.LoginRateLimit)
	v.SetDefault("settings.feedbackRateLimit", defaults.FeedbackRateLimit)
	v.SetDefault("settings.rateLimitWindowSecs", defaults.RateLimitWindowSecs)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	s, err := unmarshalSettings(v)
	if err != nil {
		return nil, err
	}
	if err := validateSettings(s); err != nil {
		return nil, err
	}

	holder := NewStaticSettings(s)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalSettings(v)
		if err != nil {
			log.Warn("settings reload failed", zap.Error(err))
			return
		}
		if err := validateSettings(updated); err != nil {
			log.Warn("invalid settings ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("settings reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *SettingsHolder) Get() Settings {
	if h == nil {
		return DefaultSettings()
	}
	return h.current.Load().(Settings)
}

// unmarshalSettings decodes the merged view so defaults fill keys the file omits.
func unmarshalSettings(v *viper.Viper) (Settings, error) {
	var wrapper struct {
		Settings Settings `mapstructure:"settings"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return Settings{}, err
	}
	return wrapper.Settings, nil
}

func validateSettings(s Settings) error {
	if strings.TrimSpace(s.TicketPrefix) == "" {
		return errors.New("settings.ticketPrefix cannot be empty")
	}
	if s.AuditListCap <= 0 {
		return errors.New("settings.auditListCap must be positive")
	}
	if s.LoginRateLimit <= 0 || s.FeedbackRateLimit <= 0 {
		return errors.New("settings rate limits must be positive")
	}
	if s.RateLimitWindowSecs <= 0 {
		return errors.New("settings.rateLimitWindowSecs must be positive")
	}
	return nil
}
