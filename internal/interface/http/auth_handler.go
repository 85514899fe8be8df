package httpapi

import (
	"log"
	"net/http"
	"time"

	"smart-sales-forecast/internal/application/auth"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}
	res, err := s.loginUC.Execute(c.Request.Context(), auth.LoginInput{
		Email:     body.Email,
		Password:  body.Password,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	})
	if err != nil {
		log.Printf("login failed email=%s: %v", body.Email, err)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials", "error_code": errCodeInvalidCredentials})
		return
	}
	log.Printf("login success user_id=%s role=%s email=%s", res.User.ID, res.User.Role, res.User.Email)

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"access_token":       res.Token.AccessToken,
		"token_type":         "Bearer",
		"expires_in":         int(s.tokenTTL.Seconds()),
		"refresh_expires_in": int(s.refreshTTL.Seconds()),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing refresh token", "error_code": errCodeUnauthorized})
		return
	}
	pair, err := s.tokenSvc.Refresh(c.Request.Context(), cookie)
	if err != nil {
		log.Printf("refresh token failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "refresh token expired or invalid", "error_code": errCodeUnauthorized})
		return
	}
	s.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiry)
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"access_token":       pair.AccessToken,
		"token_type":         "Bearer",
		"expires_in":         int(time.Until(pair.AccessExpiry).Seconds()),
		"refresh_expires_in": int(time.Until(pair.RefreshExpiry).Seconds()),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	cookie, err := c.Cookie(refreshCookieName)
	if err == nil && cookie != "" {
		if revokeErr := s.logoutUC.Execute(c.Request.Context(), cookie); revokeErr != nil {
			log.Printf("logout revoke refresh failed: %v", revokeErr)
		}
	}
	s.setRefreshCookie(c, "", time.Now().Add(-time.Hour))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "logged out",
	})
}
