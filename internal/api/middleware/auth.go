package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/orrn/printflow/internal/config"
)

const (
	cookieName    = "printflow_auth"
	tokenDuration = 24 * time.Hour
	apiKeyHeader  = "X-API-Key"
)

type Claims struct {
	jwt.RegisteredClaims
	Authenticated bool `json:"authenticated"`
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Auth guards the API two ways: a shared API key for the machine-facing
// submission endpoints and a password-backed jwt session for
// administrative ones.
type Auth struct {
	apiKey       string
	passwordHash string
	secret       []byte
}

func NewAuth(cfg *config.AuthConfig) *Auth {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// No configured secret: sessions are valid for this process only.
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	return &Auth{
		apiKey:       cfg.APIKey,
		passwordHash: cfg.AdminPassword,
		secret:       secret,
	}
}

// RequireAPIKey checks the submission key. An empty configured key leaves
// the endpoint open.
func (a *Auth) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.apiKey == "" {
			c.Next()
			return
		}
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			key = bearerToken(c)
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

// RequireAdmin validates the jwt session cookie or bearer token.
func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := a.tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		claims, err := a.validateToken(token)
		if err != nil || !claims.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// Login verifies the admin password and sets the session cookie.
func (a *Auth) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if a.passwordHash == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access is not configured"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token, err := a.generateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.SetCookie(cookieName, token, int(tokenDuration.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *Auth) Logout(c *gin.Context) {
	c.SetCookie(cookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *Auth) generateToken() (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			Issuer:    "printflow",
		},
		Authenticated: true,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func (a *Auth) tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}
	return bearerToken(c)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
