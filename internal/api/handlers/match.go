package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oriumfun/backend/internal/store"
)

// GetMatch returns a match snapshot (status, prices, players). Used by
// clients rejoining the arena page after a reload.
func GetMatch(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
			return
		}

		match, err := st.GetMatch(c.Request.Context(), matchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read match"})
			return
		}

		players, err := st.ListMatchPlayers(c.Request.Context(), matchID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read players"})
			return
		}

		winning := ""
		if match.WinningFaction.Valid {
			winning = match.WinningFaction.String
		}

		c.JSON(http.StatusOK, gin.H{
			"id":              match.ID,
			"status":          match.Status,
			"start_price":     match.StartPrice,
			"current_price":   match.CurrentPrice,
			"start_time":      match.StartTime,
			"end_time":        match.EndTime,
			"winning_faction": winning,
			"players":         players,
		})
	}
}
