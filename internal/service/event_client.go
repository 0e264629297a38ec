package service

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 工作流事件类型
const (
	EventRecordFiled     = "record.filed"
	EventRecordVerified  = "record.verified"
	EventNoticePublished = "notice.published"
)

// EventEnvelope 推送给下游系统的事件载荷
type EventEnvelope struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// EventClient 向外部 webhook 推送工作流事件的客户端。
// 推送是尽力而为：失败只记日志，不影响主流程。
type EventClient struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewEventClient 创建事件推送客户端。url 为空时返回 nil（未配置 webhook）。
func NewEventClient(url string, timeout time.Duration, logger *zap.Logger) *EventClient {
	if url == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &EventClient{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// Publish 推送一条事件
func (c *EventClient) Publish(ctx context.Context, event string, payload map[string]any) {
	envelope := EventEnvelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(envelope).
		Post(c.url)
	if err != nil {
		c.logger.Warn("webhook delivery failed",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	if resp.IsError() {
		c.logger.Warn("webhook returned error status",
			zap.String("event", event),
			zap.Int("status_code", resp.StatusCode()),
		)
	}
}
