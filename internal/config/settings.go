package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoiceSettingsFile mirrors the `invoice` section of invoice.yml. Values stay
// loosely typed here; the settings service turns them into domain settings.
type InvoiceSettingsFile struct {
	BaseCurrency      string        `mapstructure:"baseCurrency"`
	TaxRate           string        `mapstructure:"taxRate"`
	ServiceChargeRate string        `mapstructure:"serviceChargeRate"`
	CalculationOrder  string        `mapstructure:"calculationOrder"`
	RefundPolicy      string        `mapstructure:"refundPolicy"`
	Rounding          RoundingFile  `mapstructure:"rounding"`
	Taxable           TaxableFile   `mapstructure:"taxable"`
	Numbering         NumberingFile `mapstructure:"numbering"`
}

type RoundingFile struct {
	Mode        string `mapstructure:"mode"`
	KHRMode     string `mapstructure:"khrMode"`
	USDDecimals int    `mapstructure:"usdDecimals"`
}

type TaxableFile struct {
	Default *bool           `mapstructure:"default"`
	ByType  map[string]bool `mapstructure:"byType"`
}

type NumberingFile struct {
	Stream           string `mapstructure:"stream"`
	Prefix           string `mapstructure:"prefix"`
	Separator        string `mapstructure:"separator"`
	Reset            string `mapstructure:"reset"`
	Padding          int    `mapstructure:"padding"`
	AssignOnFinalize bool   `mapstructure:"assignOnFinalize"`
	FailFast         bool   `mapstructure:"failFast"`
	MaxAttempts      int    `mapstructure:"maxAttempts"`
	BackoffMillis    int    `mapstructure:"backoffMillis"`
}

// DefaultInvoiceSettings is used for every key invoice.yml leaves out.
func DefaultInvoiceSettings() InvoiceSettingsFile {
	return InvoiceSettingsFile{
		BaseCurrency:      "USD",
		TaxRate:           "0",
		ServiceChargeRate: "0",
		CalculationOrder:  "A",
		RefundPolicy:      "anyRefund",
		Rounding: RoundingFile{
			Mode:        "half_up",
			KHRMode:     "nearest_100",
			USDDecimals: 2,
		},
		Numbering: NumberingFile{
			Stream:           "invoice",
			Prefix:           "INV",
			Separator:        "-",
			Reset:            "monthly",
			Padding:          4,
			AssignOnFinalize: true,
			MaxAttempts:      5,
			BackoffMillis:    25,
		},
	}
}

type settingsRoot struct {
	Invoice InvoiceSettingsFile `mapstructure:"invoice"`
}

// InvoiceSettingsHolder keeps the latest valid settings file in memory.
type InvoiceSettingsHolder struct {
	current atomic.Value // holds InvoiceSettingsFile
}

// NewInvoiceSettingsHolder reads invoice.yml and watches it for changes.
// A missing file is not an error: defaults apply.
func NewInvoiceSettingsHolder(cfg Config, log *zap.Logger) (*InvoiceSettingsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.settings")

	v := viper.New()
	if cfg.SettingsFile != "" {
		v.SetConfigFile(cfg.SettingsFile)
	} else {
		v.SetConfigName("invoice")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/clinicbill")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLINICBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setInvoiceDefaults(v, DefaultInvoiceSettings())

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
		log.Info("invoice settings file not found, using defaults")
	}

	settings, err := decodeInvoiceSettings(v)
	if err != nil {
		return nil, err
	}

	holder := &InvoiceSettingsHolder{}
	holder.current.Store(settings)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeInvoiceSettings(v)
			if err != nil {
				log.Warn("invalid invoice settings ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("invoice settings reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// NewStaticInvoiceSettingsHolder wraps fixed settings, mainly for tests and the CLI.
func NewStaticInvoiceSettingsHolder(settings InvoiceSettingsFile) *InvoiceSettingsHolder {
	holder := &InvoiceSettingsHolder{}
	holder.current.Store(settings)
	return holder
}

func (h *InvoiceSettingsHolder) Get() InvoiceSettingsFile {
	if h == nil {
		return DefaultInvoiceSettings()
	}
	return h.current.Load().(InvoiceSettingsFile)
}

func setInvoiceDefaults(v *viper.Viper, d InvoiceSettingsFile) {
	v.SetDefault("invoice.baseCurrency", d.BaseCurrency)
	v.SetDefault("invoice.taxRate", d.TaxRate)
	v.SetDefault("invoice.serviceChargeRate", d.ServiceChargeRate)
	v.SetDefault("invoice.calculationOrder", d.CalculationOrder)
	v.SetDefault("invoice.refundPolicy", d.RefundPolicy)
	v.SetDefault("invoice.rounding.mode", d.Rounding.Mode)
	v.SetDefault("invoice.rounding.khrMode", d.Rounding.KHRMode)
	v.SetDefault("invoice.rounding.usdDecimals", d.Rounding.USDDecimals)
	v.SetDefault("invoice.numbering.stream", d.Numbering.Stream)
	v.SetDefault("invoice.numbering.prefix", d.Numbering.Prefix)
	v.SetDefault("invoice.numbering.separator", d.Numbering.Separator)
	v.SetDefault("invoice.numbering.reset", d.Numbering.Reset)
	v.SetDefault("invoice.numbering.padding", d.Numbering.Padding)
	v.SetDefault("invoice.numbering.assignOnFinalize", d.Numbering.AssignOnFinalize)
	v.SetDefault("invoice.numbering.failFast", d.Numbering.FailFast)
	v.SetDefault("invoice.numbering.maxAttempts", d.Numbering.MaxAttempts)
	v.SetDefault("invoice.numbering.backoffMillis", d.Numbering.BackoffMillis)
}

func decodeInvoiceSettings(v *viper.Viper) (InvoiceSettingsFile, error) {
	var root settingsRoot
	if err := v.Unmarshal(&root); err != nil {
		return InvoiceSettingsFile{}, err
	}
	if err := ValidateInvoiceSettings(root.Invoice); err != nil {
		return InvoiceSettingsFile{}, err
	}
	return root.Invoice, nil
}

// ValidateInvoiceSettings rejects files that cannot produce usable settings.
func ValidateInvoiceSettings(s InvoiceSettingsFile) error {
	if strings.TrimSpace(s.BaseCurrency) == "" {
		return errors.New("invoice.baseCurrency cannot be empty")
	}
	for key, raw := range map[string]string{
		"invoice.taxRate":           s.TaxRate,
		"invoice.serviceChargeRate": s.ServiceChargeRate,
	} {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if rate.IsNegative() {
			return fmt.Errorf("%s cannot be negative", key)
		}
	}
	switch strings.ToUpper(strings.TrimSpace(s.CalculationOrder)) {
	case "A", "B":
	default:
		return fmt.Errorf("invoice.calculationOrder %q must be A or B", s.CalculationOrder)
	}
	switch strings.ToLower(strings.TrimSpace(s.Numbering.Reset)) {
	case "global", "monthly", "yearly":
	default:
		return fmt.Errorf("invoice.numbering.reset %q must be global, monthly or yearly", s.Numbering.Reset)
	}
	if strings.TrimSpace(s.Numbering.Prefix) == "" {
		return errors.New("invoice.numbering.prefix cannot be empty")
	}
	return nil
}
