package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Settings keys persisted to runtime_config.json. The file uses the same
// names as the environment variables so operators can copy values between
// the two.
const (
	KeyAPIBaseURL    = "API_BASE_URL"
	KeyStartDate     = "API_START_DATE"
	KeyAPIToken      = "API_SESSION_TOKEN"
	KeyTelegramToken = "TELEGRAM_BOT_TOKEN"
	KeyChatID        = "TELEGRAM_CHAT_ID"
	KeyLimit         = "BOT_LIMIT"
)

// Settings is the persisted runtime configuration. Values are stored as
// strings; the file is a flat, human-editable JSON object.
type Settings map[string]string

// LoadSettings reads the settings document, recovering to an empty map on
// a missing or malformed file.
func LoadSettings(path string) Settings {
	out := Settings{}
	data, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return out
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = strings.TrimSpace(value.String())
		return true
	})
	return out
}

// SaveSettings overwrites the settings document in one write.
func SaveSettings(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ApplySettings overlays persisted values onto an env-loaded config.
// Persisted values win, matching the original precedence: the settings
// file is written from effective values and short-circuits re-prompting.
func (c *Config) ApplySettings(s Settings) {
	if v := s[KeyAPIBaseURL]; v != "" {
		c.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := s[KeyStartDate]; v != "" {
		c.StartDate = v
	}
	if v := s[KeyAPIToken]; v != "" {
		c.APIToken = v
	}
	if v := s[KeyTelegramToken]; v != "" {
		c.TelegramToken = v
	}
	if v := s[KeyChatID]; v != "" {
		c.DefaultChatID = v
	}
	if v := s[KeyLimit]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limit = n
		}
	}
}

// Snapshot returns the settings document for the effective config.
func (c *Config) Snapshot() Settings {
	return Settings{
		KeyAPIBaseURL:    c.APIBaseURL,
		KeyStartDate:     c.StartDate,
		KeyAPIToken:      c.APIToken,
		KeyTelegramToken: c.TelegramToken,
		KeyChatID:        c.DefaultChatID,
		KeyLimit:         strconv.Itoa(c.Limit),
	}
}
