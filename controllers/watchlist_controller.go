package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// WatchlistController manages the current user's tracked symbols
type WatchlistController struct {
	db *gorm.DB
}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController(db *gorm.DB) *WatchlistController {
	return &WatchlistController{db: db}
}

// GetWatchlist lists the current user's watchlist entries
// GET /api/v1/watchlist
func (wc *WatchlistController) GetWatchlist(c *gin.Context) {
	userID := currentUserID(c)

	var entries []models.Watchlist
	if err := wc.db.Where("user_id = ?", userID).Order("symbol ASC").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// AddToWatchlist adds a tracked symbol for the current user
// POST /api/v1/watchlist
func (wc *WatchlistController) AddToWatchlist(c *gin.Context) {
	userID := currentUserID(c)

	var request struct {
		Symbol string `json:"symbol" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var stock models.Stock
	if err := wc.db.Where("symbol = ?", request.Symbol).First(&stock).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown symbol"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate symbol"})
		return
	}

	var existing models.Watchlist
	err := wc.db.Where("user_id = ? AND symbol = ?", userID, request.Symbol).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Symbol already in watchlist"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check watchlist"})
		return
	}

	entry := models.Watchlist{
		UserID: userID,
		Symbol: request.Symbol,
		Notes:  request.Notes,
	}
	if err := wc.db.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to watchlist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

// RemoveFromWatchlist removes a watchlist entry owned by the current user
// DELETE /api/v1/watchlist/:id
func (wc *WatchlistController) RemoveFromWatchlist(c *gin.Context) {
	userID := currentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid watchlist ID"})
		return
	}

	var entry models.Watchlist
	if err := wc.db.Where("id = ? AND user_id = ?", id, userID).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist entry"})
		return
	}

	if err := wc.db.Delete(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove from watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from watchlist"})
}
