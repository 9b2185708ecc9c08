package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"whatsapp-api/internal/config"
	"whatsapp-api/internal/tenant"
	"whatsapp-api/pkg/response"
)

// ContextKey is a custom type for context keys
type ContextKey string

// TokenKey is the context key for the JWT token
const TokenKey ContextKey = "token"

// Claims carries the tenant-scoped JWT payload: team, role, and the
// authenticated user, per spec §3/§4.1.
type Claims struct {
	TeamID   string      `json:"team_id"`
	UserID   string      `json:"user_id"`
	UserRole tenant.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates JWT tokens and injects a tenant.Context built
// from the team/role/user claims into the request context, per spec §4.1's
// row-level-security model.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			response.Unauthorized(c, "authorization header required")
			return
		}

		claims, err := ValidateToken(tokenString, cfg)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, "token has expired")
			} else {
				response.Unauthorized(c, "invalid token")
			}
			return
		}

		tc := tenant.Context{TeamID: claims.TeamID, UserRole: claims.UserRole, UserID: claims.UserID}
		c.Set(string(TokenKey), tokenString)
		c.Set("tenant", tc)

		ctx := tenant.WithContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OptionalAuthMiddleware validates a JWT token if present, but doesn't
// require one — used for endpoints that serve both authenticated and
// anonymous callers.
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString, err := ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.Next()
			return
		}

		claims, err := ValidateToken(tokenString, cfg)
		if err == nil {
			tc := tenant.Context{TeamID: claims.TeamID, UserRole: claims.UserRole, UserID: claims.UserID}
			c.Set(string(TokenKey), tokenString)
			c.Set("tenant", tc)
			c.Request = c.Request.WithContext(tenant.WithContext(c.Request.Context(), tc))
		}

		c.Next()
	}
}

// RequireRole aborts with 403 unless the tenant.Context attached to the
// request carries one of the allowed roles.
func RequireRole(roles ...tenant.Role) gin.HandlerFunc {
	allowed := make(map[tenant.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		tc, ok := tenant.FromContext(c.Request.Context())
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		if !allowed[tc.UserRole] {
			response.Forbidden(c, "insufficient role")
			return
		}
		c.Next()
	}
}

// GetTenant retrieves the tenant.Context the auth middleware attached to
// the request.
func GetTenant(c *gin.Context) (tenant.Context, bool) {
	return tenant.FromContext(c.Request.Context())
}

// GetToken retrieves the JWT token from the Gin context
func GetToken(c *gin.Context) (string, error) {
	token, exists := c.Get(string(TokenKey))
	if !exists {
		return "", fmt.Errorf("token not found in context")
	}
	tokenStr, ok := token.(string)
	if !ok {
		return "", fmt.Errorf("invalid token type in context")
	}
	return tokenStr, nil
}

// IsAuthenticated checks if the request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, ok := tenant.FromContext(c.Request.Context())
	return ok
}

// ValidateToken validates a JWT token string without gin context
func ValidateToken(tokenString string, cfg *config.Config) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Issuer != cfg.JWT.Issuer {
		return nil, fmt.Errorf("invalid token issuer")
	}
	audienceOK := false
	for _, aud := range claims.Audience {
		if aud == cfg.JWT.Audience {
			audienceOK = true
		}
	}
	if !audienceOK {
		return nil, fmt.Errorf("invalid token audience")
	}
	if claims.TeamID == "" {
		return nil, fmt.Errorf("missing team_id in token")
	}
	return claims, nil
}

// IssueToken mints a signed JWT carrying the tenant claims, per spec §4.1.
func IssueToken(cfg *config.Config, tc tenant.Context) (string, error) {
	now := time.Now()
	claims := Claims{
		TeamID:   tc.TeamID,
		UserID:   tc.UserID,
		UserRole: tc.UserRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			Audience:  jwt.ClaimStrings{cfg.JWT.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWT.Expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ExtractTokenFromHeader extracts the JWT token from an Authorization header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is empty")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid authorization header format")
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("authorization header must use Bearer scheme")
	}
	return parts[1], nil
}

// GetClientIP retrieves the client's IP address
func GetClientIP(c *gin.Context) string {
	forwarded := c.GetHeader("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.ClientIP()
}

// GetUserAgent retrieves the user agent from the request
func GetUserAgent(c *gin.Context) string {
	return c.GetHeader("User-Agent")
}
