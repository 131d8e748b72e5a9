package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// StockController handles stock and price browse requests
type StockController struct {
	db *gorm.DB
}

// NewStockController creates a new stock controller
func NewStockController(db *gorm.DB) *StockController {
	return &StockController{db: db}
}

// GetStocks returns the tracked stocks with pagination
// GET /api/v1/stocks
func (sc *StockController) GetStocks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := sc.db.Model(&models.Stock{})
	if search := c.Query("search"); search != "" {
		query = query.Where("symbol LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if sector := c.Query("sector"); sector != "" {
		query = query.Where("sector = ?", sector)
	}

	var total int64
	query.Count(&total)

	var stocks []models.Stock
	if err := query.Order("symbol ASC").Limit(limit).Offset(offset).Find(&stocks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stocks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stocks,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetStockPrices returns daily bars for a symbol, most recent first
// GET /api/v1/stocks/:symbol/prices
func (sc *StockController) GetStockPrices(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit < 1 || limit > 500 {
		limit = 30
	}

	var prices []models.StockPrice
	err := sc.db.Where("symbol = ?", symbol).
		Order("date DESC").
		Limit(limit).
		Find(&prices).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prices"})
		return
	}
	if len(prices) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No price data for symbol"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": prices})
}

// GetLatestQuote returns the most recent stored bar for a symbol
// GET /api/v1/stocks/:symbol/quote
func (sc *StockController) GetLatestQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	var price models.StockPrice
	err := sc.db.Where("symbol = ?", symbol).
		Order("date DESC").
		First(&price).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No price data for symbol"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": price})
}

// GetIndicators returns the latest derived snapshots for a symbol
// GET /api/v1/stocks/:symbol/indicators
func (sc *StockController) GetIndicators(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit < 1 || limit > 500 {
		limit = 30
	}

	var snapshots []models.IndicatorSnapshot
	err := sc.db.Where("symbol = ?", symbol).
		Order("date DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch indicators"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}
