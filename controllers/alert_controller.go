package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// AlertController handles alert CRUD for authenticated users. Alerts are
// created active and only the background engine moves them to triggered;
// this API never touches triggered state beyond reading it.
type AlertController struct {
	db *gorm.DB
}

// NewAlertController creates a new alert controller
func NewAlertController(db *gorm.DB) *AlertController {
	return &AlertController{db: db}
}

// CreateAlert creates a new active alert for the current user
// POST /api/v1/alerts
func (ac *AlertController) CreateAlert(c *gin.Context) {
	userID := currentUserID(c)

	var request struct {
		Symbol              string           `json:"symbol" binding:"required"`
		AlertType           models.AlertType `json:"alert_type" binding:"required"`
		Threshold           decimal.Decimal  `json:"threshold" binding:"required"`
		NotificationChannel string           `json:"notification_channel"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.IsValidAlertType(request.AlertType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "Invalid alert type",
			"valid_types": models.ValidAlertTypes(),
		})
		return
	}

	var stock models.Stock
	if err := ac.db.Where("symbol = ?", request.Symbol).First(&stock).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown symbol"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate symbol"})
		return
	}

	alert := models.Alert{
		UserID:              userID,
		Symbol:              request.Symbol,
		AlertType:           request.AlertType,
		Threshold:           request.Threshold,
		Status:              models.AlertStatusActive,
		NotificationChannel: request.NotificationChannel,
	}
	if err := ac.db.Create(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": alert})
}

// GetAlerts lists the current user's alerts, optionally filtered by status
// GET /api/v1/alerts
func (ac *AlertController) GetAlerts(c *gin.Context) {
	userID := currentUserID(c)

	query := ac.db.Where("user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if symbol := c.Query("symbol"); symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var alerts []models.Alert
	if err := query.Order("created_at DESC").Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// GetAlert returns a single alert owned by the current user
// GET /api/v1/alerts/:id
func (ac *AlertController) GetAlert(c *gin.Context) {
	userID := currentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	var alert models.Alert
	if err := ac.db.Where("id = ? AND user_id = ?", id, userID).First(&alert).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alert})
}

// CancelAlert removes an active alert. Triggered alerts are terminal and
// kept for the user's records; they cannot be cancelled.
// DELETE /api/v1/alerts/:id
func (ac *AlertController) CancelAlert(c *gin.Context) {
	userID := currentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	var alert models.Alert
	if err := ac.db.Where("id = ? AND user_id = ?", id, userID).First(&alert).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert"})
		return
	}

	if alert.Status != models.AlertStatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Only active alerts can be cancelled"})
		return
	}

	if err := ac.db.Delete(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert cancelled"})
}

// GetAlertHistory lists trigger audit records for the current user's alerts
// GET /api/v1/alerts/history
func (ac *AlertController) GetAlertHistory(c *gin.Context) {
	userID := currentUserID(c)

	var history []models.AlertHistory
	err := ac.db.
		Joins("JOIN alerts ON alerts.id = alert_histories.alert_id").
		Where("alerts.user_id = ?", userID).
		Order("alert_histories.triggered_at DESC").
		Find(&history).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}

// currentUserID reads the user ID placed in the context by the auth middleware
func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
