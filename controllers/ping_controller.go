package controllers

import (
	"net/http"
	"strconv"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
	"github.com/tbmobb813/KidMap-sub000/services/container"

	"github.com/gin-gonic/gin"
)

// InterfacePingController 定义指令控制器接口
type InterfacePingController interface {
	SendPing()
	RingChild()
	RequestLocation()
	RequestCheckIn()
	SendEmergencyPing()
	GetPendingPings()
	GetPingHistory()
	GetPing()
	GetRingSession()
	GetLastLocation()
	GetPingRecords()
	GetPingStatistics()
}

// PingController 处理家长侧的指令请求
type PingController struct {
	BaseControllerImpl
}

// NewPingController 创建一个新的指令控制器
func (f *ControllerFactory) NewPingController(ctx *gin.Context) *PingController {
	return &PingController{
		BaseControllerImpl: BaseControllerImpl{
			Container: f.Container,
			Context:   ctx,
		},
	}
}

// SendPingRequest 表示发起指令的请求体
type SendPingRequest struct {
	Type    string `json:"type" binding:"required" example:"ring"`
	Message string `json:"message" example:"Where are you?"`
}

// PingMessageRequest 表示便捷指令端点的请求体
type PingMessageRequest struct {
	Message string `json:"message" example:"Please check in"`
}

// HandlePingFunc 返回一个处理指令请求的Gin处理函数
func HandlePingFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	factory := NewControllerFactory(container)

	return func(ctx *gin.Context) {
		controller := factory.NewPingController(ctx)

		switch method {
		case "send":
			controller.SendPing()
		case "ring":
			controller.RingChild()
		case "locate":
			controller.RequestLocation()
		case "check_in":
			controller.RequestCheckIn()
		case "emergency":
			controller.SendEmergencyPing()
		case "pending":
			controller.GetPendingPings()
		case "history":
			controller.GetPingHistory()
		case "get":
			controller.GetPing()
		case "ring_session":
			controller.GetRingSession()
		case "last_location":
			controller.GetLastLocation()
		case "records":
			controller.GetPingRecords()
		case "statistics":
			controller.GetPingStatistics()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// SendPing 发起一条指令
// @Summary      Send Ping
// @Description  Create a ping of the given type and deliver it to the child device
// @Tags         Ping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SendPingRequest true "Ping parameters"
// @Success      200  {object}  map[string]interface{}  "Ping created"
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Router       /pings [post]
func (c *PingController) SendPing() {
	var req SendPingRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	dispatcher := c.Container.GetPingDispatcherService()
	id, err := dispatcher.SendPing(models.PingType(req.Type), req.Message)
	if err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Ping sent",
		"data":    gin.H{"ping_id": id},
	})
}

// RingChild 发起响铃指令
// @Summary      Ring Child Device
// @Description  Ring the child device with vibration, alarm audio and a response prompt
// @Tags         Ping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PingMessageRequest false "Optional message"
// @Success      200  {object}  map[string]interface{}  "Ping created"
// @Router       /pings/ring [post]
func (c *PingController) RingChild() {
	c.sendTyped(models.PingTypeRing)
}

// RequestLocation 发起定位指令
// @Summary      Request Location
// @Description  Ask the child device for its current location
// @Tags         Ping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PingMessageRequest false "Optional message"
// @Success      200  {object}  map[string]interface{}  "Ping created"
// @Router       /pings/locate [post]
func (c *PingController) RequestLocation() {
	c.sendTyped(models.PingTypeLocate)
}

// RequestCheckIn 发起签到指令
// @Summary      Request Check-In
// @Description  Ask the child to confirm they are okay via quick response options
// @Tags         Ping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PingMessageRequest false "Optional message"
// @Success      200  {object}  map[string]interface{}  "Ping created"
// @Router       /pings/check-in [post]
func (c *PingController) RequestCheckIn() {
	c.sendTyped(models.PingTypeCheckIn)
}

// SendEmergencyPing 发起紧急指令
// @Summary      Send Emergency Ping
// @Description  Trigger an emergency alert on the child device with extended ring and location capture
// @Tags         Ping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PingMessageRequest false "Optional message"
// @Success      200  {object}  map[string]interface{}  "Ping created"
// @Router       /pings/emergency [post]
func (c *PingController) SendEmergencyPing() {
	c.sendTyped(models.PingTypeEmergency)
}

// sendTyped 处理固定类型的便捷指令端点
func (c *PingController) sendTyped(pingType models.PingType) {
	var req PingMessageRequest
	// 请求体可为空，解析失败按空消息处理
	_ = c.Context.ShouldBindJSON(&req)

	dispatcher := c.Container.GetPingDispatcherService()
	id, err := dispatcher.SendPing(pingType, req.Message)
	if err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Ping sent",
		"data":    gin.H{"ping_id": id},
	})
}

// GetPendingPings 获取所有未确认且未过期的指令
// @Summary      Get Pending Pings
// @Description  List pings that are not yet acknowledged and not expired
// @Tags         Ping
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}  "Pending pings"
// @Router       /pings/pending [get]
func (c *PingController) GetPendingPings() {
	dispatcher := c.Container.GetPingDispatcherService()

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data":    dispatcher.Pending(),
	})
}

// GetPingHistory 获取最近的指令历史
// @Summary      Get Ping History
// @Description  List the most recent pings in reverse chronological order
// @Tags         Ping
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Maximum number of entries, default 20"
// @Success      200  {object}  map[string]interface{}  "Ping history"
// @Router       /pings/history [get]
func (c *PingController) GetPingHistory() {
	limit, _ := strconv.Atoi(c.Context.DefaultQuery("limit", strconv.Itoa(models.DefaultHistoryLimit)))

	dispatcher := c.Container.GetPingDispatcherService()

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data":    dispatcher.History(limit),
	})
}

// GetPing 查询单条指令
// @Summary      Get Ping
// @Description  Get a single ping by its ID
// @Tags         Ping
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Ping ID"
// @Success      200  {object}  map[string]interface{}  "Ping detail"
// @Failure      404  {object}  ErrorResponse  "Ping not found"
// @Router       /pings/{id} [get]
func (c *PingController) GetPing() {
	id := c.Context.Param("id")

	dispatcher := c.Container.GetPingDispatcherService()
	req, exists := dispatcher.GetPing(id)
	if !exists {
		c.Context.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "指令不存在",
			"data":    nil,
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data":    req,
	})
}

// GetRingSession 查询当前响铃会话
// @Summary      Get Ring Session
// @Description  Inspect the currently active ring session, if any
// @Tags         Ping
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}  "Ring session state"
// @Router       /pings/ring/session [get]
func (c *PingController) GetRingSession() {
	ring := c.Container.GetRingOrchestratorService()

	session, active := ring.ActiveSession()
	data := gin.H{"active": active}
	if active {
		data["session"] = session
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data":    data,
	})
}

// GetLastLocation 获取孩子设备最近缓存的位置
// @Summary      Get Last Location
// @Description  Get the most recently captured location of the child device from cache
// @Tags         Ping
// @Produce      json
// @Security     BearerAuth
// @Param        device_id query string false "Child device ID, defaults to the configured device"
// @Success      200  {object}  map[string]interface{}  "Last known location"
// @Failure      404  {object}  ErrorResponse  "No cached location"
// @Router       /pings/last-location [get]
func (c *PingController) GetLastLocation() {
	deviceID := c.Context.Query("device_id")
	if deviceID == "" {
		if cfg, ok := c.Container.GetService("config").(*config.Config); ok {
			deviceID = cfg.ChildDeviceID
		}
	}

	redisService := c.Container.GetRedisService()
	loc, err := redisService.GetLastLocation(deviceID)
	if err != nil {
		c.Context.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": "没有缓存的位置信息",
			"data":    nil,
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data":    loc,
	})
}

// GetPingRecords 获取指令审计记录，支持分页
// @Summary      Get Ping Records
// @Description  List persisted ping audit records with pagination
// @Tags         PingRecord
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number, default 1"
// @Param        page_size query int false "Page size, default 10"
// @Success      200  {object}  map[string]interface{}  "Paginated ping records"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /ping-records [get]
func (c *PingController) GetPingRecords() {
	page, _ := strconv.Atoi(c.Context.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Context.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	recordService := c.Container.GetPingRecordService()
	records, total, err := recordService.GetAllPingRecords(page, pageSize)
	if err != nil {
		c.Context.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取指令记录失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data": gin.H{
			"records":    records,
			"pagination": models.NewPaginationResult(int(total), page, pageSize),
		},
	})
}

// GetPingStatistics 获取指令统计信息
// @Summary      Get Ping Statistics
// @Description  Aggregate counts over the persisted ping audit records
// @Tags         PingRecord
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}  "Ping statistics"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /ping-records/statistics [get]
func (c *PingController) GetPingStatistics() {
	recordService := c.Container.GetPingRecordService()
	stats, err := recordService.GetPingStatistics()
	if err != nil {
		c.Context.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取统计信息失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Success",
		"data":    stats,
	})
}
