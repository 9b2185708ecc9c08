package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-api/internal/config"
	"whatsapp-api/internal/tenant"
)

func testCfg() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "whatsapp-api"
	cfg.JWT.Audience = "whatsapp-api-clients"
	cfg.JWT.Expiry = time.Hour
	return cfg
}

func TestIssueToken_ValidateToken_RoundTrip(t *testing.T) {
	cfg := testCfg()
	tc := tenant.Context{TeamID: "team-1", UserID: "user-1", UserRole: tenant.RoleAdmin}

	token, err := IssueToken(cfg, tc)
	require.NoError(t, err)

	claims, err := ValidateToken(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "team-1", claims.TeamID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, tenant.RoleAdmin, claims.UserRole)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	cfg := testCfg()
	token, err := IssueToken(cfg, tenant.Context{TeamID: "team-1"})
	require.NoError(t, err)

	other := testCfg()
	other.JWT.Secret = "different-secret"
	_, err = ValidateToken(token, other)
	assert.Error(t, err)
}

func TestValidateToken_RejectsWrongIssuer(t *testing.T) {
	cfg := testCfg()
	token, err := IssueToken(cfg, tenant.Context{TeamID: "team-1"})
	require.NoError(t, err)

	other := testCfg()
	other.JWT.Issuer = "someone-else"
	_, err = ValidateToken(token, other)
	assert.ErrorContains(t, err, "issuer")
}

func TestValidateToken_RejectsExpiredToken(t *testing.T) {
	cfg := testCfg()
	cfg.JWT.Expiry = -time.Hour
	token, err := IssueToken(cfg, tenant.Context{TeamID: "team-1"})
	require.NoError(t, err)

	_, err = ValidateToken(token, cfg)
	assert.Error(t, err)
}

func TestValidateToken_RejectsMissingTeamID(t *testing.T) {
	cfg := testCfg()
	token, err := IssueToken(cfg, tenant.Context{})
	require.NoError(t, err)

	_, err = ValidateToken(token, cfg)
	assert.ErrorContains(t, err, "team_id")
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestExtractTokenFromHeader_RejectsEmpty(t *testing.T) {
	_, err := ExtractTokenFromHeader("")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader_RejectsMissingScheme(t *testing.T) {
	_, err := ExtractTokenFromHeader("abc123")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader_RejectsNonBearerScheme(t *testing.T) {
	_, err := ExtractTokenFromHeader("Basic abc123")
	assert.ErrorContains(t, err, "Bearer")
}

func TestExtractTokenFromHeader_CaseInsensitiveScheme(t *testing.T) {
	token, err := ExtractTokenFromHeader("bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)
}
