package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir        string `json:"data_dir" yaml:"data_dir"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
	MaxConcurrent  int    `json:"max_concurrent" yaml:"max_concurrent"`
	TimezoneOffset string `json:"timezone_offset" yaml:"timezone_offset"`
	HTTP           struct {
		Enabled bool   `json:"enabled" yaml:"enabled"`
		Listen  string `json:"listen" yaml:"listen"`
	} `json:"http" yaml:"http"`
	Calendar struct {
		Backend         string `json:"backend" yaml:"backend"`
		CalendarID      string `json:"calendar_id" yaml:"calendar_id"`
		CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
		CredentialsJSON string `json:"credentials_json" yaml:"credentials_json"`
		ICSPath         string `json:"ics_path" yaml:"ics_path"`
		HorizonDays     int    `json:"horizon_days" yaml:"horizon_days"`
	} `json:"calendar" yaml:"calendar"`
	WhatsApp struct {
		APIBaseURL    string `json:"api_base_url" yaml:"api_base_url"`
		PhoneNumberID string `json:"phone_number_id" yaml:"phone_number_id"`
		Token         string `json:"token" yaml:"token"`
	} `json:"whatsapp" yaml:"whatsapp"`
	Telegram struct {
		Token string `json:"token" yaml:"token"`
	} `json:"telegram" yaml:"telegram"`
	Notify struct {
		Recipient        string `json:"recipient" yaml:"recipient"`
		ReminderSchedule string `json:"reminder_schedule" yaml:"reminder_schedule"`
		DigestSchedule   string `json:"digest_schedule" yaml:"digest_schedule"`
		LookAheadMinutes int    `json:"look_ahead_minutes" yaml:"look_ahead_minutes"`
	} `json:"notify" yaml:"notify"`
	Parser struct {
		Fallback bool `json:"fallback" yaml:"fallback"`
	} `json:"parser" yaml:"parser"`
}

// Location returns the fixed civil zone all day boundaries are computed in.
func (c *Config) Location() (*time.Location, error) {
	return ParseOffset(c.TimezoneOffset)
}

// ParseOffset turns "-05:00" (or "-0500", "-5") into a fixed zone.
func ParseOffset(offset string) (*time.Location, error) {
	s := strings.TrimSpace(offset)
	if s == "" || s == "Z" {
		return time.UTC, nil
	}
	sign := 1
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	digits := strings.ReplaceAll(s, ":", "")
	var hours, minutes int
	var err error
	switch len(digits) {
	case 1, 2:
		hours, err = strconv.Atoi(digits)
	case 4:
		hours, err = strconv.Atoi(digits[:2])
		if err == nil {
			minutes, err = strconv.Atoi(digits[2:])
		}
	default:
		err = fmt.Errorf("bad length")
	}
	if err != nil || hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("invalid timezone offset %q", offset)
	}
	secs := sign * (hours*3600 + minutes*60)
	return time.FixedZone(formatOffset(secs), secs), nil
}

func formatOffset(secs int) string {
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

func defaults() *Config {
	cfg := &Config{
		DataDir:        filepath.Join(os.Getenv("HOME"), ".agendabot"),
		LogLevel:       "info",
		MaxConcurrent:  4,
		TimezoneOffset: "-05:00",
	}
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = ":10000"
	cfg.Calendar.Backend = "ics"
	cfg.Calendar.CalendarID = "primary"
	cfg.Calendar.HorizonDays = 365
	cfg.WhatsApp.APIBaseURL = "https://graph.facebook.com/v21.0"
	cfg.Notify.ReminderSchedule = "*/5 * * * *"
	cfg.Notify.DigestSchedule = "0 7 * * *"
	cfg.Notify.LookAheadMinutes = 60
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Calendar.ICSPath == "" {
		cfg.Calendar.ICSPath = filepath.Join(cfg.DataDir, "calendar.ics")
	}

	// Override from env (highest precedence)
	if token := os.Getenv("WHATSAPP_TOKEN"); token != "" {
		cfg.WhatsApp.Token = token
	}
	if phoneID := os.Getenv("PHONE_NUMBER_ID"); phoneID != "" {
		cfg.WhatsApp.PhoneNumberID = phoneID
	}
	if calID := os.Getenv("CALENDAR_ID"); calID != "" {
		cfg.Calendar.CalendarID = calID
		if cfg.Calendar.Backend == "ics" && cfg.Calendar.CredentialsFile == "" {
			cfg.Calendar.Backend = "google"
		}
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); creds != "" {
		cfg.Calendar.CredentialsJSON = creds
		cfg.Calendar.Backend = "google"
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if recipient := os.Getenv("NOTIFY_RECIPIENT"); recipient != "" {
		cfg.Notify.Recipient = recipient
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTP.Listen = ":" + port
	}

	return cfg, nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

// ToMap converts the config into a generic nested map using its JSON field names.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns every config value keyed by dot-separated path.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads a single dot-separated key from the config file at path.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(raw)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores value under key in the config file at path, keeping any
// other keys (including ones the Config struct does not know about). Values
// that parse as JSON (numbers, booleans) are stored typed.
func SetValue(path, key, value string) error {
	raw, err := readRaw(path)
	if err != nil {
		return err
	}
	flat := Flatten(raw)

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		flat[key] = parsed
	} else {
		flat[key] = value
	}

	data, err := encode(path, Unflatten(flat))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	raw := make(map[string]any)
	if err := decode(path, data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return raw, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte, v any) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func encode(path string, v any) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
