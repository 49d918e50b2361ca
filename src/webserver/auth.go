package webserver

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Auth struct {
	adminKey  string
	jwtSecret []byte
}

func NewAuth(adminKey string, secret []byte) Auth {
	return Auth{adminKey: adminKey, jwtSecret: secret}
}

// Token exchanges the configured admin key for a short-lived JWT used
// on the /admin routes.
func (a Auth) Token(c *gin.Context) {
	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if a.adminKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "admin API is not configured"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(a.adminKey)) != 1 {
		log.Printf("Rejected admin token request from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad key"})
		return
	}

	token, err := issueJWT("admin", a.jwtSecret)
	if err != nil {
		log.Printf("Failed to issue JWT: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
