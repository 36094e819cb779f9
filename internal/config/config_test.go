package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"API_BASE_URL", "API_START_DATE", "API_SESSION_TOKEN",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "BOT_LIMIT",
		"USE_CUSTOM_EMOJI", "DATA_DIR", "POLL_INTERVAL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "http://127.0.0.1:8000", cfg.APIBaseURL)
	assert.Empty(t, cfg.StartDate)
	assert.Empty(t, cfg.APIToken)
	assert.Equal(t, 30, cfg.Limit)
	assert.False(t, cfg.UseCustomEmoji)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, DefaultTokenRefreshSkew, cfg.TokenRefreshSkew)
	assert.Equal(t, 90*time.Second, cfg.LoginTimeout)
	assert.Equal(t, 10*time.Minute, cfg.FetchTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://panel.example.com/")
	t.Setenv("BOT_LIMIT", "55")
	t.Setenv("USE_CUSTOM_EMOJI", "1")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "https://panel.example.com", cfg.APIBaseURL, "trailing slash is stripped")
	assert.Equal(t, 55, cfg.Limit)
	assert.True(t, cfg.UseCustomEmoji)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("BOT_LIMIT", "many")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 30, cfg.Limit)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
}

func TestBootstrap_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_DIR=/srv/otp\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	// t.Setenv snapshots the variable for restore; the unset makes the
	// .env value visible to godotenv.
	t.Setenv("DATA_DIR", "placeholder")
	os.Unsetenv("DATA_DIR")

	cfg := Bootstrap()
	assert.Equal(t, "/srv/otp", cfg.DataDir)
}

func TestBootstrap_EnvironmentWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_DIR=/srv/otp\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	t.Setenv("DATA_DIR", "/var/lib/bot")

	cfg := Bootstrap()
	assert.Equal(t, "/var/lib/bot", cfg.DataDir)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 40, ParseLimit("40"))
	assert.Equal(t, 55, ParseLimit(" 55 "))
	assert.Equal(t, DefaultLimit, ParseLimit("many"), "non-numeric reply falls back to the default")
	assert.Equal(t, DefaultLimit, ParseLimit(""))
	assert.Equal(t, 1, ParseLimit("0"))
	assert.Equal(t, 100, ParseLimit("900"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, ClampLimit(0))
	assert.Equal(t, 1, ClampLimit(-7))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 30, ClampLimit(30))
	assert.Equal(t, 100, ClampLimit(100))
	assert.Equal(t, 100, ClampLimit(900))
}

func TestNormalizeStartDate(t *testing.T) {
	assert.Equal(t, "2026-08-31", NormalizeStartDate("2026-08-31"))
	assert.Equal(t, "2026-08-01", NormalizeStartDate("2026-8-1"), "single digits are zero padded")
	assert.Equal(t, "2026-08-31", NormalizeStartDate("  2026-8-31 "))

	today := time.Now().Format("2006-01-02")
	assert.Equal(t, today, NormalizeStartDate(""))
	assert.Equal(t, today, NormalizeStartDate("yesterday"))
	assert.Equal(t, today, NormalizeStartDate("08-31"), "missing year falls back to today")
	assert.Equal(t, today, NormalizeStartDate("26-08-31"), "two digit year is rejected")
	assert.Equal(t, today, NormalizeStartDate("2026-08-"))
}

func TestDataPaths(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/bot"}

	assert.Equal(t, "/var/lib/bot/accounts.json", cfg.AccountsFile())
	assert.Equal(t, "/var/lib/bot/groups.json", cfg.GroupsFile())
	assert.Equal(t, "/var/lib/bot/country_codes.json", cfg.CountriesFile())
	assert.Equal(t, "/var/lib/bot/token_cache.json", cfg.TokenCacheFile())
	assert.Equal(t, "/var/lib/bot/runtime_config.json", cfg.SettingsFile())
	assert.Equal(t, "/var/lib/bot/daily_messages", cfg.DailyStoreDir())
}

func TestSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime_config.json")
	in := Settings{
		KeyAPIBaseURL:    "https://panel.example.com",
		KeyTelegramToken: "123:abc",
		KeyLimit:         "40",
	}
	require.NoError(t, SaveSettings(path, in))

	out := LoadSettings(path)
	assert.Equal(t, in, out)
}

func TestLoadSettings_RecoversFromBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime_config.json")

	assert.Empty(t, LoadSettings(path), "missing file loads empty")

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	assert.Empty(t, LoadSettings(path), "garbage loads empty")

	require.NoError(t, os.WriteFile(path, []byte(`["a","b"]`), 0o644))
	assert.Empty(t, LoadSettings(path), "non-object loads empty")
}

func TestLoadSettings_TrimsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"API_SESSION_TOKEN": "  tok  "}`), 0o644))

	assert.Equal(t, "tok", LoadSettings(path)[KeyAPIToken])
}

func TestApplySettings_PersistedValuesWin(t *testing.T) {
	cfg := &Config{
		APIBaseURL:    "http://127.0.0.1:8000",
		TelegramToken: "env-token",
		Limit:         30,
	}
	cfg.ApplySettings(Settings{
		KeyAPIBaseURL:    "https://panel.example.com/",
		KeyTelegramToken: "file-token",
		KeyChatID:        "-100555",
		KeyLimit:         "45",
	})

	assert.Equal(t, "https://panel.example.com", cfg.APIBaseURL)
	assert.Equal(t, "file-token", cfg.TelegramToken)
	assert.Equal(t, "-100555", cfg.DefaultChatID)
	assert.Equal(t, 45, cfg.Limit)
}

func TestApplySettings_EmptyOrBadValuesIgnored(t *testing.T) {
	cfg := &Config{TelegramToken: "env-token", Limit: 30, StartDate: "2026-08-30"}
	cfg.ApplySettings(Settings{
		KeyTelegramToken: "",
		KeyLimit:         "lots",
	})

	assert.Equal(t, "env-token", cfg.TelegramToken)
	assert.Equal(t, 30, cfg.Limit)
	assert.Equal(t, "2026-08-30", cfg.StartDate)
}

func TestSnapshot(t *testing.T) {
	cfg := &Config{
		APIBaseURL:    "https://panel.example.com",
		StartDate:     "2026-08-31",
		APIToken:      "tok",
		TelegramToken: "123:abc",
		DefaultChatID: "-100555",
		Limit:         40,
	}

	assert.Equal(t, Settings{
		KeyAPIBaseURL:    "https://panel.example.com",
		KeyStartDate:     "2026-08-31",
		KeyAPIToken:      "tok",
		KeyTelegramToken: "123:abc",
		KeyChatID:        "-100555",
		KeyLimit:         "40",
	}, cfg.Snapshot())
}
