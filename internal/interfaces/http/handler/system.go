package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cartbridge/backend/internal/domain/cart"
	"github.com/cartbridge/backend/internal/interfaces/http/dto"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
	}
}

// UnitInfo describes one supported unit code
type UnitInfo struct {
	Code        string `json:"code"`
	Measurement string `json:"measurement"`
	Fractional  bool   `json:"fractional"`
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name             string     `json:"name"`
	Version          string     `json:"version"`
	GoVersion        string     `json:"go_version"`
	Uptime           string     `json:"uptime"`
	Units            []UnitInfo `json:"units"`
	MeasurementTypes []string   `json:"measurement_types"`
}

// GetSystemInfo returns service information including the unit codes
// accepted by the to-do item endpoints
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	units := []cart.Unit{
		cart.UnitPiece,
		cart.UnitKilogram,
		cart.UnitGram,
		cart.UnitPound,
		cart.UnitLiter,
		cart.UnitMilliliter,
	}

	unitInfos := make([]UnitInfo, 0, len(units))
	for _, u := range units {
		unitInfos = append(unitInfos, UnitInfo{
			Code:        string(u),
			Measurement: string(u.Measurement()),
			Fractional:  u.IsFractional(),
		})
	}

	info := SystemInfoResponse{
		Name:      "cartbridge",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Units:     unitInfos,
		MeasurementTypes: []string{
			string(cart.MeasurementPiece),
			string(cart.MeasurementWeight),
			string(cart.MeasurementVolume),
		},
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping is a simple liveness check
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
