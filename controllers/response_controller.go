package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
	"github.com/tbmobb813/KidMap-sub000/services/container"

	"github.com/gin-gonic/gin"
)

// InterfaceResponseController 定义孩子设备响应控制器接口
type InterfaceResponseController interface {
	StopRing()
	Respond()
	Heartbeat()
	GetDeviceStatus()
}

// ResponseController 处理孩子设备侧的响应请求
// MQTT桥接不可用时，孩子设备通过这些HTTP端点回传响应
type ResponseController struct {
	BaseControllerImpl
}

// NewResponseController 创建一个新的响应控制器
func (f *ControllerFactory) NewResponseController(ctx *gin.Context) *ResponseController {
	return &ResponseController{
		BaseControllerImpl: BaseControllerImpl{
			Container: f.Container,
			Context:   ctx,
		},
	}
}

// ChildRespondRequest 表示孩子设备的响应请求体
type ChildRespondRequest struct {
	Action  string `json:"action" binding:"required" example:"respond"`
	Option  string `json:"option" example:"im_ok"`
	Message string `json:"message" example:"I'm at the library"`
	Urgent  bool   `json:"urgent" example:"false"`
	Status  string `json:"status" example:"safe"`
}

// HeartbeatRequest 表示孩子设备的心跳请求体
type HeartbeatRequest struct {
	DeviceID     string  `json:"device_id" example:"child-device-001"`
	BatteryLevel float64 `json:"battery_level" example:"0.82"`
	AppVersion   string  `json:"app_version" example:"1.4.2"`
}

// HandleResponseFunc 返回一个处理孩子设备响应的Gin处理函数
func HandleResponseFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	factory := NewControllerFactory(container)

	return func(ctx *gin.Context) {
		controller := factory.NewResponseController(ctx)

		switch method {
		case "stop_ring":
			controller.StopRing()
		case "respond":
			controller.Respond()
		case "heartbeat":
			controller.Heartbeat()
		case "status":
			controller.GetDeviceStatus()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// StopRing 停止当前响铃会话
// @Summary      Stop Ring
// @Description  Stop the active ring session without acknowledging the ping
// @Tags         Child
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "Ring stopped"
// @Router       /child/ring/stop [post]
func (c *ResponseController) StopRing() {
	ring := c.Container.GetRingOrchestratorService()
	ring.StopRing()

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Ring stopped",
		"data":    nil,
	})
}

// Respond 处理孩子对某条指令的响应
// @Summary      Respond to Ping
// @Description  Process a child response action for a ping (respond, check_in, emergency, acknowledge)
// @Tags         Child
// @Accept       json
// @Produce      json
// @Param        id path string true "Ping ID"
// @Param        request body ChildRespondRequest true "Response action and payload"
// @Success      200  {object}  map[string]interface{}  "Response processed"
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Failure      404  {object}  ErrorResponse  "Ping not found"
// @Router       /child/pings/{id}/respond [post]
func (c *ResponseController) Respond() {
	pingID := c.Context.Param("id")

	var req ChildRespondRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	payload := map[string]any{
		"option":  req.Option,
		"message": req.Message,
		"urgent":  req.Urgent,
		"status":  req.Status,
	}

	dispatcher := c.Container.GetPingDispatcherService()
	if err := dispatcher.HandleChildAction(pingID, req.Action, payload); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrPingNotFound) {
			status = http.StatusNotFound
		}
		c.Context.JSON(status, gin.H{
			"code":    status,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Response processed",
		"data":    nil,
	})
}

// Heartbeat 上报孩子设备的在线心跳
// @Summary      Device Heartbeat
// @Description  Report the child device presence, cached for guardian status queries
// @Tags         Child
// @Accept       json
// @Produce      json
// @Param        request body HeartbeatRequest true "Device heartbeat"
// @Success      200  {object}  map[string]interface{}  "Heartbeat recorded"
// @Router       /child/heartbeat [post]
func (c *ResponseController) Heartbeat() {
	var req HeartbeatRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		if cfg, ok := c.Container.GetService("config").(*config.Config); ok {
			deviceID = cfg.ChildDeviceID
		}
	}

	presence := map[string]interface{}{
		"device_id":     deviceID,
		"battery_level": req.BatteryLevel,
		"app_version":   req.AppVersion,
		"last_seen":     time.Now().Format(time.RFC3339),
	}

	redisService := c.Container.GetRedisService()
	// 心跳缓存5分钟，过期即视为离线
	if err := redisService.CacheDevicePresence(deviceID, presence, 5*time.Minute); err != nil {
		config.Warning("[CHILD] 缓存设备心跳失败: device_id=%s, err=%v", deviceID, err)
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Heartbeat recorded",
		"data":    nil,
	})
}

// GetDeviceStatus 查询孩子设备的在线状态
// @Summary      Get Device Status
// @Description  Get the cached presence of the child device
// @Tags         Child
// @Produce      json
// @Param        device_id query string false "Child device ID, defaults to the configured device"
// @Success      200  {object}  map[string]interface{}  "Device presence"
// @Router       /child/status [get]
func (c *ResponseController) GetDeviceStatus() {
	deviceID := c.Context.Query("device_id")
	if deviceID == "" {
		if cfg, ok := c.Container.GetService("config").(*config.Config); ok {
			deviceID = cfg.ChildDeviceID
		}
	}

	redisService := c.Container.GetRedisService()
	presence, err := redisService.GetDevicePresence(deviceID)
	if err != nil {
		c.Context.JSON(http.StatusOK, gin.H{
			"code":    0,
			"message": "Success",
			"data":    gin.H{"online": false, "device_id": deviceID},
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data":    gin.H{"online": true, "presence": presence},
	})
}
