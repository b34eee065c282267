package middleware

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/survey-service/internal/config"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

const (
	// ContextUserID holds the authenticated author's id.
	ContextUserID = "user_id"
	// ContextSessionID holds the respondent's response session token.
	ContextSessionID = "session_id"

	SessionHeader = "X-Session-ID"
	// DevUserHeader names the author directly; only honored in development.
	DevUserHeader = "X-User-ID"
)

// TokenParser validates a bearer token and returns its claims.
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

func NewCasdoorParser(cfg config.CasdoorConfig) TokenParser {
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.OrganizationName,
		cfg.ApplicationName,
	)
}

type AuthOptions struct {
	// AllowDevHeader accepts X-User-ID when no bearer token is sent.
	AllowDevHeader bool
}

// RequireUser rejects requests without a valid Casdoor token and stores the
// user id under ContextUserID.
func RequireUser(parser TokenParser, logger utils.Logger, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if userID := strings.TrimSpace(c.GetHeader(DevUserHeader)); opts.AllowDevHeader && userID != "" {
				c.Set(ContextUserID, userID)
				c.Next()
				return
			}
			abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}

		if parser == nil {
			abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}
		claims, err := parser.ParseJwtToken(token)
		if err != nil {
			logger.Warn("Rejected access token", "path", c.Request.URL.Path, "error", err)
			abort(c, http.StatusUnauthorized, "Invalid access token")
			return
		}

		userID := claims.User.Id
		if userID == "" && claims.User.Name != "" {
			userID = claims.User.Owner + "/" + claims.User.Name
		}
		if userID == "" {
			abort(c, http.StatusUnauthorized, "Invalid access token")
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// RequireSession takes the respondent's session token from X-Session-ID.
// Ownership is checked by the response guard, not here.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sessionID == "" {
			abort(c, http.StatusUnauthorized, "Missing "+SessionHeader+" header")
			return
		}
		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
