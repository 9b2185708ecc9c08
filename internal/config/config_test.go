package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database:    DatabaseConfig{URL: "postgres://localhost/db"},
		JWT:         JWTConfig{Secret: "s3cret"},
		Server:      ServerConfig{Port: "8080"},
		WhatsApp:    WhatsAppConfig{MaxSessions: 5},
		Correlation: CorrelationConfig{MinConfidenceThreshold: 0.4, AutoVerifyThreshold: 0.9},
		WebSocket:   WebSocketConfig{PingInterval: 10 * time.Second},
	}
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_RequiresDatabaseURL(t *testing.T) {
	c := validConfig()
	c.Database.URL = ""
	assert.ErrorContains(t, c.Validate(), "DATABASE_URL")
}

func TestValidate_RequiresJWTSecret(t *testing.T) {
	c := validConfig()
	c.JWT.Secret = ""
	assert.ErrorContains(t, c.Validate(), "JWT_SECRET")
}

func TestValidate_MaxSessionsRange(t *testing.T) {
	c := validConfig()
	c.WhatsApp.MaxSessions = 0
	assert.Error(t, c.Validate())

	c.WhatsApp.MaxSessions = 51
	assert.Error(t, c.Validate())
}

func TestValidate_AutoVerifyMustExceedConfidenceThreshold(t *testing.T) {
	c := validConfig()
	c.Correlation.AutoVerifyThreshold = c.Correlation.MinConfidenceThreshold
	assert.ErrorContains(t, c.Validate(), "AUTO_VERIFY_THRESHOLD")
}

func TestValidate_PingIntervalCeiling(t *testing.T) {
	c := validConfig()
	c.WebSocket.PingInterval = 20 * time.Second
	assert.ErrorContains(t, c.Validate(), "WS_PING_INTERVAL")
}

func TestIsDevelopment_IsProduction(t *testing.T) {
	c := &Config{}
	c.Server.Env = "development"
	assert.True(t, c.IsDevelopment())
	assert.False(t, c.IsProduction())

	c.Server.Env = "prod"
	assert.True(t, c.IsProduction())
	assert.False(t, c.IsDevelopment())
}

func TestGetServerAddress(t *testing.T) {
	c := &Config{}
	c.Server.Port = "9090"
	assert.Equal(t, ":9090", c.GetServerAddress())
}

func TestGetEnv_DefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, "fallback", getEnv("WA_TEST_UNSET_VAR", "fallback"))
}

func TestGetEnv_ReadsSetValue(t *testing.T) {
	t.Setenv("WA_TEST_STR", "hello")
	assert.Equal(t, "hello", getEnv("WA_TEST_STR", "fallback"))
}

func TestGetEnvBool_ParsesOrFallsBack(t *testing.T) {
	t.Setenv("WA_TEST_BOOL", "true")
	assert.True(t, getEnvBool("WA_TEST_BOOL", false))
	assert.False(t, getEnvBool("WA_TEST_BOOL_UNSET", false))
}

func TestGetEnvInt_ParsesOrFallsBack(t *testing.T) {
	t.Setenv("WA_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("WA_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("WA_TEST_INT_UNSET", 1))
}

func TestGetEnvFloat_ParsesOrFallsBack(t *testing.T) {
	t.Setenv("WA_TEST_FLOAT", "0.75")
	assert.Equal(t, 0.75, getEnvFloat("WA_TEST_FLOAT", 0.1))
}

func TestGetEnvDuration_ParsesSecondsAsRawUnits(t *testing.T) {
	t.Setenv("WA_TEST_DURATION", "5")
	assert.Equal(t, 5*time.Nanosecond, getEnvDuration("WA_TEST_DURATION", 1))
}

func TestGetEnvSlice_SplitsOnComma(t *testing.T) {
	t.Setenv("WA_TEST_SLICE", "a,b,c")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvSlice("WA_TEST_SLICE", nil))
	assert.Equal(t, []string{"x"}, getEnvSlice("WA_TEST_SLICE_UNSET", []string{"x"}))
}
