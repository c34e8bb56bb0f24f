package services

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// 主题常量
const (
	// 指令下发主题（通知孩子设备有新指令）
	TopicPingIncoming = "kidmap_ping/incoming"

	// 孩子设备控制主题（响铃弹窗、停止指令等）
	TopicChildController = "kidmap_ping/controller/child"

	// 孩子响应主题（设备端回传的响应动作）
	TopicChildResponse = "kidmap_ping/response"

	// 系统消息主题
	TopicSystemMessage = "kidmap_ping/system"
)

// 消息结构体定义
type (
	// IncomingPingMessage 指令下发通知消息
	IncomingPingMessage struct {
		PingID    string `json:"ping_id"`
		Type      string `json:"type"`
		Urgency   string `json:"urgency"`
		Message   string `json:"message,omitempty"`
		ExpiresAt int64  `json:"expires_at"`
		Timestamp int64  `json:"timestamp"`
	}

	// ChildControlMessage 孩子设备控制消息
	ChildControlMessage struct {
		Action    string   `json:"action"`
		PingID    string   `json:"ping_id"`
		Urgency   string   `json:"urgency,omitempty"`
		Prompt    string   `json:"prompt,omitempty"`
		Choices   []string `json:"choices,omitempty"`
		Timestamp int64    `json:"timestamp"`
	}

	// ChildResponseMessage 孩子设备回传的响应消息
	ChildResponseMessage struct {
		PingID    string         `json:"ping_id"`
		Action    string         `json:"action"`
		Payload   map[string]any `json:"payload,omitempty"`
		Timestamp int64          `json:"timestamp"`
	}

	// BridgeSystemMessage 系统消息
	BridgeSystemMessage struct {
		Type      string      `json:"type"`
		Level     string      `json:"level"` // info/warning/error
		Message   string      `json:"message"`
		Data      interface{} `json:"data,omitempty"`
		Timestamp int64       `json:"timestamp"`
	}
)

// ChildResponseHandler 孩子响应的回调，由调度器注入
type ChildResponseHandler func(pingID, action string, payload map[string]any)

// InterfaceNotificationBridge 定义通知桥接服务接口
// 桥接层代表真实的多设备推送通道，指令管理器只通过它下发本地提醒
type InterfaceNotificationBridge interface {
	Connect() error
	Disconnect()
	SchedulePing(req *models.PingRequest) error
	PublishChildControl(ctrl ChildControlMessage) error
	PublishSystemMessage(messageType, level, message string, data interface{}) error
	SetResponseHandler(handler ChildResponseHandler)
}

// MQTTNotificationBridge 基于MQTT的通知桥接实现
type MQTTNotificationBridge struct {
	Config         *config.Config
	Client         mqtt.Client
	IsConnected    bool
	connectedMutex sync.RWMutex // 保护IsConnected字段的读写
	PublishMutex   sync.Mutex   // 用于保护MQTT消息发布
	ProcessedMsgs  *sync.Map    // 用于记录已处理的响应，防止重复处理

	handlerMutex    sync.RWMutex
	responseHandler ChildResponseHandler
}

// NewMQTTNotificationBridge 创建一个新的MQTT通知桥接
func NewMQTTNotificationBridge(cfg *config.Config) InterfaceNotificationBridge {
	bridge := &MQTTNotificationBridge{
		Config:        cfg,
		IsConnected:   false,
		ProcessedMsgs: &sync.Map{},
	}

	bridge.setupMQTTClient()

	// 启动消息去重清理任务
	go bridge.startMsgCleanupTask()

	return bridge
}

// setupMQTTClient 设置MQTT客户端
func (b *MQTTNotificationBridge) setupMQTTClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.Config.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", b.Config.MQTTClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Second * 30)
	opts.SetKeepAlive(time.Second * 60)
	opts.SetPingTimeout(time.Second * 10)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		config.Warning("[MQTT] 收到未处理的消息: topic=%s", msg.Topic())
	})

	// 添加用户名和密码
	if b.Config.MQTTUsername != "" {
		opts.SetUsername(b.Config.MQTTUsername)
		opts.SetPassword(b.Config.MQTTPassword)
	}

	// 添加TLS配置，支持SSL连接
	if strings.HasPrefix(b.Config.MQTTBrokerURL, "ssl://") || strings.HasPrefix(b.Config.MQTTBrokerURL, "tls://") || b.Config.MQTTSSLEnabled {
		config.Info("[MQTT] 使用TLS连接")
		tlsConfig := &tls.Config{
			InsecureSkipVerify: true, // 默认跳过验证，如有CA证书则使用
		}
		if b.Config.MQTTCACertPath != "" {
			if caCert, err := os.ReadFile(b.Config.MQTTCACertPath); err == nil {
				pool := x509.NewCertPool()
				if pool.AppendCertsFromPEM(caCert) {
					tlsConfig.RootCAs = pool
					tlsConfig.InsecureSkipVerify = false
				}
			} else {
				config.Warning("[MQTT] 读取CA证书失败: %v", err)
			}
		}
		opts.SetTLSConfig(tlsConfig)
	}

	// 设置连接丢失回调
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		config.Warning("[MQTT] 连接丢失: %v", err)
		b.connectedMutex.Lock()
		b.IsConnected = false
		b.connectedMutex.Unlock()
	})

	// 设置连接建立回调
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		config.Info("[MQTT] 成功连接到 %s", b.Config.MQTTBrokerURL)
		b.connectedMutex.Lock()
		b.IsConnected = true
		b.connectedMutex.Unlock()

		// 订阅孩子响应主题
		if err := b.subscribeResponseTopic(); err != nil {
			config.Error("[MQTT] 订阅响应主题失败: %v", err)
		}
	})

	// 设置重连回调
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		config.Info("[MQTT] 正在尝试重连...")
	})

	b.Client = mqtt.NewClient(opts)
}

// Connect 连接到MQTT服务器，带有重试机制
func (b *MQTTNotificationBridge) Connect() error {
	config.Info("[MQTT] 正在连接到 %s...", b.Config.MQTTBrokerURL)

	// 加锁，确保同一时间只有一个连接尝试
	b.PublishMutex.Lock()
	defer b.PublishMutex.Unlock()

	b.connectedMutex.RLock()
	isConnected := b.IsConnected && b.Client.IsConnected()
	b.connectedMutex.RUnlock()

	if isConnected {
		return nil
	}

	// 添加最大重试次数和指数退避策略
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		token := b.Client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			b.connectedMutex.Lock()
			b.IsConnected = true
			b.connectedMutex.Unlock()
			return nil
		}

		err = token.Error()
		backoffTime := time.Duration(1<<uint(i)) * time.Second // 指数退避: 1s, 2s, 4s, 8s, 16s
		config.Warning("[MQTT] 连接尝试 %d/%d 失败: %v, 将在 %v 后重试", i+1, maxRetries, err, backoffTime)
		time.Sleep(backoffTime)
	}

	return fmt.Errorf("[MQTT] 连接失败，已尝试 %d 次: %v", maxRetries, err)
}

// Disconnect 断开与MQTT服务器的连接
func (b *MQTTNotificationBridge) Disconnect() {
	if b.Client != nil && b.Client.IsConnected() {
		b.Client.Disconnect(250)
	}
}

// SetResponseHandler 注入孩子响应的处理回调
func (b *MQTTNotificationBridge) SetResponseHandler(handler ChildResponseHandler) {
	b.handlerMutex.Lock()
	defer b.handlerMutex.Unlock()
	b.responseHandler = handler
}

// subscribeResponseTopic 订阅孩子设备的响应主题
func (b *MQTTNotificationBridge) subscribeResponseTopic() error {
	// 使用QoS 1确保消息至少被传递一次
	qos := byte(1)

	if token := b.Client.Subscribe(TopicChildResponse, qos, b.handleChildResponse); token.Wait() && token.Error() != nil {
		return fmt.Errorf("订阅主题失败 [%s]: %v", TopicChildResponse, token.Error())
	}
	config.Info("[MQTT] 已订阅主题: %s", TopicChildResponse)
	return nil
}

// handleChildResponse 处理孩子设备回传的响应消息
func (b *MQTTNotificationBridge) handleChildResponse(_ mqtt.Client, msg mqtt.Message) {
	// 使用defer和recover防止处理程序panic导致整个服务崩溃
	defer func() {
		if r := recover(); r != nil {
			config.Error("[MQTT] 处理孩子响应消息发生panic: %v", r)
		}
	}()

	var response ChildResponseMessage
	if err := json.Unmarshal(msg.Payload(), &response); err != nil {
		config.Warning("[MQTT] 解析孩子响应消息失败: %v", err)
		return
	}

	// 去重，避免QoS 1重传导致的重复处理
	if b.isMessageProcessed(response.PingID, response.Action, response.Timestamp) {
		return
	}
	b.markMessageProcessed(response.PingID, response.Action, response.Timestamp)

	b.handlerMutex.RLock()
	handler := b.responseHandler
	b.handlerMutex.RUnlock()

	if handler == nil {
		config.Warning("[MQTT] 收到孩子响应但未注册处理器: ping_id=%s", response.PingID)
		return
	}

	handler(response.PingID, response.Action, response.Payload)
}

// SchedulePing 下发一条指令通知到孩子设备
func (b *MQTTNotificationBridge) SchedulePing(req *models.PingRequest) error {
	notification := IncomingPingMessage{
		PingID:    req.ID,
		Type:      string(req.Type),
		Urgency:   string(req.Urgency),
		Message:   req.Message,
		ExpiresAt: req.ExpiresAt.UnixMilli(),
		Timestamp: time.Now().UnixMilli(),
	}
	return b.publishMessage(TopicPingIncoming, notification)
}

// PublishChildControl 发布孩子设备控制消息
func (b *MQTTNotificationBridge) PublishChildControl(ctrl ChildControlMessage) error {
	if ctrl.Timestamp == 0 {
		ctrl.Timestamp = time.Now().UnixMilli()
	}
	return b.publishMessage(TopicChildController, ctrl)
}

// PublishSystemMessage 发布系统消息
func (b *MQTTNotificationBridge) PublishSystemMessage(messageType, level, message string, data interface{}) error {
	return b.publishMessage(TopicSystemMessage, BridgeSystemMessage{
		Type:      messageType,
		Level:     level,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// publishMessage 发布消息到指定主题
func (b *MQTTNotificationBridge) publishMessage(topic string, payload interface{}) error {
	// 加锁保护发布过程，避免并发发布冲突
	b.PublishMutex.Lock()
	defer b.PublishMutex.Unlock()

	b.connectedMutex.RLock()
	isConnected := b.IsConnected && b.Client.IsConnected()
	b.connectedMutex.RUnlock()

	if !isConnected {
		return fmt.Errorf("MQTT客户端未连接")
	}

	// 序列化消息
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	// 发布消息，使用QoS 1确保消息至少被传递一次
	qos := byte(1)
	retained := false // 非持久消息

	token := b.Client.Publish(topic, qos, retained, jsonData)

	// 设置超时时间，避免无限等待
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("发布消息超时")
	}

	if token.Error() != nil {
		return fmt.Errorf("发布消息失败: %v", token.Error())
	}

	config.Info("[MQTT] 已发布%T类型消息到主题: %s", payload, topic)
	return nil
}

// startMsgCleanupTask 启动消息去重清理定时任务
func (b *MQTTNotificationBridge) startMsgCleanupTask() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		// 清理超过5分钟的消息记录
		now := time.Now().Unix()
		count := 0

		b.ProcessedMsgs.Range(func(key, value interface{}) bool {
			if stamp, ok := value.(int64); ok {
				if now-stamp > 300 {
					b.ProcessedMsgs.Delete(key)
					count++
				}
			}
			return true
		})

		if count > 0 {
			config.Info("[MQTT] 清理了 %d 条历史响应记录", count)
		}
	}
}

// 生成消息唯一标识
func responseMsgKey(pingID, action string, timestamp int64) string {
	return fmt.Sprintf("%s:%s:%d", pingID, action, timestamp)
}

// 判断消息是否已处理
func (b *MQTTNotificationBridge) isMessageProcessed(pingID, action string, timestamp int64) bool {
	_, exists := b.ProcessedMsgs.Load(responseMsgKey(pingID, action, timestamp))
	return exists
}

// 标记消息为已处理
func (b *MQTTNotificationBridge) markMessageProcessed(pingID, action string, timestamp int64) {
	b.ProcessedMsgs.Store(responseMsgKey(pingID, action, timestamp), time.Now().Unix())
}

// LocalNotificationBridge 本地模拟的通知桥接
// 未配置MQTT broker时使用，只记录日志，不做真实推送
type LocalNotificationBridge struct{}

// NewLocalNotificationBridge 创建本地模拟桥接
func NewLocalNotificationBridge() InterfaceNotificationBridge {
	return &LocalNotificationBridge{}
}

func (b *LocalNotificationBridge) Connect() error { return nil }

func (b *LocalNotificationBridge) Disconnect() {}

func (b *LocalNotificationBridge) SchedulePing(req *models.PingRequest) error {
	config.Info("[BRIDGE] 本地通知: type=%s, urgency=%s, ping_id=%s", req.Type, req.Urgency, req.ID)
	return nil
}

func (b *LocalNotificationBridge) PublishChildControl(ctrl ChildControlMessage) error {
	config.Info("[BRIDGE] 本地控制消息: action=%s, ping_id=%s", ctrl.Action, ctrl.PingID)
	return nil
}

func (b *LocalNotificationBridge) PublishSystemMessage(messageType, level, message string, data interface{}) error {
	config.Info("[BRIDGE] 本地系统消息: type=%s, level=%s, message=%s", messageType, level, message)
	return nil
}

func (b *LocalNotificationBridge) SetResponseHandler(handler ChildResponseHandler) {
	// 本地模式下孩子响应通过HTTP接口进入，无需桥接回调
}
