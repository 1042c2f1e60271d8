package middlewares

import (
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pagestreamhq/pagestream/utils"
)

// JWT fetches the bearer token in the http header field "token", verifies it
// and adds a field "sub" storing the authenticated subject. It aborts with
// 401 on token not provided or token invalid (wrong token or expired).
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": utils.ErrorTokenAuthFail,
				"msg":  "empty jwt token",
			})
			c.Abort()
			return
		}

		sub, err := utils.VerifyJWTSubject(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code": utils.ErrorTokenAuthFail,
				"msg":  err.Error(),
			})
			c.Abort()
			return
		}

		// Successfully validated the token, replace the header field "token"
		// with the subject so downstream handlers never see credentials.
		c.Request.Header.Del("token")
		c.Request.Header.Set("sub", sub)

		c.Next()
	}
}

// InternalOnly admits requests whose source address is in the
// INTERNAL_WEBHOOK_IPS comma-separated allow-list and rejects everything
// else with 403. It guards the notifier's internal webhook endpoints.
func InternalOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := parseAllowList(os.Getenv("INTERNAL_WEBHOOK_IPS"))
		source := c.ClientIP()

		if !utils.ContainsString(allowed, source) {
			c.JSON(http.StatusForbidden, gin.H{
				"code": utils.ErrorForbiddenIP,
				"msg":  "source address not allowed",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseAllowList(raw string) []string {
	allowed := []string{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		// Normalize so that entries like "::1" compare equal to gin's
		// ClientIP rendering.
		if ip := net.ParseIP(entry); ip != nil {
			entry = ip.String()
		}
		allowed = append(allowed, entry)
	}
	return allowed
}
