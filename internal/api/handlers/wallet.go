package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oriumfun/backend/internal/middleware"
	"github.com/oriumfun/backend/internal/store"
)

// GetWallet returns the authenticated user's balances. Balances are
// display-only here; match outcomes do not mutate them.
func GetWallet(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		wallet, err := st.GetWallet(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
				return
			}
			log.Printf("[WALLET] Read failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read wallet"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"balance":       wallet.Balance,
			"bonus_balance": wallet.BonusBalance,
		})
	}
}
