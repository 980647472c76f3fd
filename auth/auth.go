package auth

import (
	"errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"qrmenu/database"
	"qrmenu/utils"
)

type Handler struct {
	store  database.Store
	tokens *utils.TokenManager
	log    *zap.Logger
}

func NewHandler(store database.Store, tokens *utils.TokenManager, log *zap.Logger) *Handler {
	return &Handler{store: store, tokens: tokens, log: log}
}

// OwnerLogin handles the owner password login.
func (h *Handler) OwnerLogin(c *gin.Context) {
	var req struct {
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&req); err != nil || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}

	if !h.tokens.CheckOwnerPassword(req.Password) {
		h.log.Warn("Owner login failed", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid owner password"})
		return
	}

	token, err := h.tokens.GenerateOwnerToken()
	if err != nil {
		h.log.Error("Failed to sign owner token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// VerifyTable handles the table credentials entered after scanning a QR code.
func (h *Handler) VerifyTable(c *gin.Context) {
	var req struct {
		TableID       string `json:"tableId" form:"tableId"`
		TablePassword string `json:"tablePassword" form:"tablePassword"`
	}
	if err := c.ShouldBind(&req); err != nil || req.TableID == "" || req.TablePassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	table, err := h.store.GetTable(c.Request.Context(), req.TableID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		h.log.Error("Failed to load table", zap.String("tableId", req.TableID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if table == nil || !table.Active || !utils.PasswordsMatch(table.TablePassword, req.TablePassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid table credentials"})
		return
	}

	token, err := h.tokens.GenerateTableToken(table.TableID)
	if err != nil {
		h.log.Error("Failed to sign table token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"table": gin.H{"tableId": table.TableID, "name": table.DisplayName()},
	})
}
