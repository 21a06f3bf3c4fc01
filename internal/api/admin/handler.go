package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ShaniStaretz-ai/FinalProject/internal/model"
	"github.com/ShaniStaretz-ai/FinalProject/internal/repository"
	"github.com/ShaniStaretz-ai/FinalProject/internal/service"
)

// Handler serves the /admin endpoints.
type Handler struct {
	users     *repository.UserRepository
	lifecycle *service.LifecycleService
}

func NewHandler(users *repository.UserRepository, lifecycle *service.LifecycleService) *Handler {
	return &Handler{users: users, lifecycle: lifecycle}
}

// GetUsers handles GET /admin/users?min_tokens=N
func (h *Handler) GetUsers(c *gin.Context) {
	var minTokens *int
	if raw := c.Query("min_tokens"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "min_tokens must be an integer"})
			return
		}
		minTokens = &v
	}

	users, err := h.users.List(minTokens)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "count": len(users), "users": users})
}

// AddTokens handles POST /admin/users/{user_id}/tokens
func (h *Handler) AddTokens(c *gin.Context) {
	targetID, ok := h.targetUserID(c)
	if !ok {
		return
	}

	var req model.AddTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Amount must be positive"})
		return
	}

	if !h.verifyEmailMatches(c, targetID, req.Email) {
		return
	}

	if err := h.users.Grant(targetID, req.Amount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to add tokens"})
		return
	}

	zap.L().Info("Admin granted tokens",
		zap.String("admin", c.GetString("email")),
		zap.Int("user_id", targetID),
		zap.Int("amount", req.Amount))

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Tokens added",
		"email":   req.Email,
		"amount":  req.Amount,
	})
}

// ResetPassword handles POST /admin/users/{user_id}/reset_password
func (h *Handler) ResetPassword(c *gin.Context) {
	targetID, ok := h.targetUserID(c)
	if !ok {
		return
	}

	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if len(req.NewPassword) < 4 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Password must be at least 4 characters"})
		return
	}

	if !h.verifyEmailMatches(c, targetID, req.Email) {
		return
	}

	hash, err := service.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	updated, err := h.users.UpdatePassword(targetID, hash)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update password"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}

	zap.L().Info("Admin reset password",
		zap.String("admin", c.GetString("email")),
		zap.Int("user_id", targetID))

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Password reset successfully"})
}

// DeleteUser handles DELETE /admin/users/{user_id}. Artifact files go first,
// then the user row; model rows follow through the foreign key cascade.
func (h *Handler) DeleteUser(c *gin.Context) {
	targetID, ok := h.targetUserID(c)
	if !ok {
		return
	}

	h.lifecycle.DeleteUserModels(targetID)

	deleted, err := h.users.Delete(targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}

	zap.L().Info("Admin deleted user",
		zap.String("admin", c.GetString("email")),
		zap.Int("user_id", targetID))

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "User and all associated models deleted",
	})
}

// targetUserID parses the path parameter and blocks self-modification:
// admins may not delete or modify their own account through these endpoints.
func (h *Handler) targetUserID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid user ID"})
		return 0, false
	}

	if id == c.GetInt("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You cannot modify your own account"})
		return 0, false
	}

	return id, true
}

// verifyEmailMatches confirms the payload email belongs to the target user,
// guarding against a mismatched id/email pair.
func (h *Handler) verifyEmailMatches(c *gin.Context, targetID int, email string) bool {
	user, err := h.users.GetByID(targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return false
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return false
	}
	if user.Email != email {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email does not match user ID"})
		return false
	}
	return true
}
