package gateway

import "cardgate/internal/config"

// Config holds the processor connection settings and per-endpoint paths.
type Config struct {
	BaseURL   string
	SecretKey string

	TokenizePath     string
	DeactivatePath   string
	ChargePath       string
	ChargeAuthPath   string
	SubmitOTPPath    string
	SubmitPhonePath  string
	SubmitPinPath    string
	ChargeStatusPath string // prefix, reference appended
	VerifyPath       string // prefix, reference appended
}

// DefaultConfig returns the processor's published endpoint table.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://api.paystack.co",
		TokenizePath:     "/charge/tokenize",
		DeactivatePath:   "/customer/deactivate_authorization",
		ChargePath:       "/charge",
		ChargeAuthPath:   "/transaction/charge_authorization",
		SubmitOTPPath:    "/charge/submit_otp",
		SubmitPhonePath:  "/charge/submit_phone",
		SubmitPinPath:    "/charge/submit_pin",
		ChargeStatusPath: "/charge/",
		VerifyPath:       "/transaction/verify/",
	}
}

// ConfigFromEnv builds a Config from the environment, falling back to the
// published defaults for any unset value.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.BaseURL = config.GetEnv("PROCESSOR_BASE_URL", cfg.BaseURL)
	cfg.SecretKey = config.GetEnv("PROCESSOR_SECRET_KEY", "")
	cfg.TokenizePath = config.GetEnv("PROCESSOR_TOKENIZE_PATH", cfg.TokenizePath)
	cfg.DeactivatePath = config.GetEnv("PROCESSOR_DEACTIVATE_PATH", cfg.DeactivatePath)
	cfg.ChargePath = config.GetEnv("PROCESSOR_CHARGE_PATH", cfg.ChargePath)
	cfg.ChargeAuthPath = config.GetEnv("PROCESSOR_CHARGE_AUTH_PATH", cfg.ChargeAuthPath)
	cfg.SubmitOTPPath = config.GetEnv("PROCESSOR_SUBMIT_OTP_PATH", cfg.SubmitOTPPath)
	cfg.SubmitPhonePath = config.GetEnv("PROCESSOR_SUBMIT_PHONE_PATH", cfg.SubmitPhonePath)
	cfg.SubmitPinPath = config.GetEnv("PROCESSOR_SUBMIT_PIN_PATH", cfg.SubmitPinPath)
	cfg.ChargeStatusPath = config.GetEnv("PROCESSOR_CHARGE_STATUS_PATH", cfg.ChargeStatusPath)
	cfg.VerifyPath = config.GetEnv("PROCESSOR_VERIFY_PATH", cfg.VerifyPath)
	return cfg
}

func (c Config) chargeStatusPath(reference string) string {
	return c.ChargeStatusPath + reference
}

func (c Config) verifyPath(reference string) string {
	return c.VerifyPath + reference
}
