package config

import (
	"fmt"
	"time"

	"github.com/divverma2003/convo-app/internal/directory"
	pkgconfig "github.com/divverma2003/convo-app/pkg/config"
	"github.com/divverma2003/convo-app/pkg/log"
)

// PickerConfig configures the terminal user picker.
type PickerConfig struct {
	API     PickerAPIConfig    `mapstructure:"api"`
	Search  PickerSearchConfig `mapstructure:"search"`
	Log     log.Config         `mapstructure:"log"`
	LogFile string             `mapstructure:"log_file"`
}

type PickerAPIConfig struct {
	URL          string        `mapstructure:"url"`
	SessionToken string        `mapstructure:"session_token"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type PickerSearchConfig struct {
	PageSize        int           `mapstructure:"page_size"`
	Debounce        time.Duration `mapstructure:"debounce"`
	SyntheticPrefix string        `mapstructure:"synthetic_prefix"`
}

var pickerDefaults = map[string]interface{}{
	"api.url":                 "http://localhost:5001",
	"api.timeout":             "10s",
	"search.page_size":        10,
	"search.debounce":         "500ms",
	"search.synthetic_prefix": "recording-",
	"log.level":               "debug",
	"log.service_name":        "convo-picker",
	"log_file":                "picker.log",
}

var pickerEnv = map[string][]string{
	"api.url":           {"CONVO_API_URL"},
	"api.session_token": {"CONVO_SESSION_TOKEN"},
	"log.level":         {"LOG_LEVEL"},
	"log_file":          {"CONVO_LOG_FILE"},
	"search.page_size":  {"CONVO_PAGE_SIZE"},
}

// LoadPicker reads the picker configuration.
func LoadPicker() (*PickerConfig, error) {
	v, err := pkgconfig.Load("./config", "picker")
	if err != nil {
		return nil, err
	}

	pkgconfig.ApplyDefaults(v, pickerDefaults)
	if err := pkgconfig.BindEnvs(v, pickerEnv); err != nil {
		return nil, err
	}

	var cfg PickerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Search.PageSize <= 0 || cfg.Search.PageSize > directory.MaxLimit {
		return nil, fmt.Errorf("config: search.page_size must be between 1 and %d", directory.MaxLimit)
	}
	return &cfg, nil
}
