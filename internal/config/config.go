package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

type Config struct {
	APIBaseURL        string        `koanf:"api_base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	StateFile         string        `koanf:"state_file"`
	LogFile           string        `koanf:"log_file"`
	Debug             bool          `koanf:"debug"`

	ShopName     string `koanf:"shop_name"`
	ShopAddress  string `koanf:"shop_address"`
	ShopPhone    string `koanf:"shop_phone"`
	ShopNotice   string `koanf:"shop_notice"`
	ReceiptWidth int    `koanf:"receipt_width"`

	PrinterType    string `koanf:"printer_type"`
	PrinterUSBPath string `koanf:"printer_usb_path"`
	PrinterAddress string `koanf:"printer_address"`
	PrinterFile    string `koanf:"printer_file"`

	ScannerDevice string `koanf:"scanner_device"`
	MetricsAddr   string `koanf:"metrics_addr"`

	LLMBaseURL string `koanf:"llm_base_url"`
	LLMAPIKey  string `koanf:"llm_api_key"`
	LLMModel   string `koanf:"llm_model"`
}

func New() (Config, error) {
	cfg := Config{
		APIBaseURL:        "http://localhost:5000",
		Timeout:           5 * time.Minute,
		RequestsPerSecond: 10,
		StateFile:         "./pos-admin.state.json",
		LogFile:           "./pos-admin.log",
		ShopName:          "Shoelicious",
		ReceiptWidth:      48,
		PrinterType:       "none",
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	if cfg.ReceiptWidth <= 0 {
		cfg.ReceiptWidth = 48
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}

	return cfg, nil
}
