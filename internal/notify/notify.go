// Package notify formats and delivers text notifications to the configured
// chat webhook, recording every attempt in the push log.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"goldwatch/internal/logging"
	"goldwatch/internal/models"
	"goldwatch/internal/store"
	"goldwatch/internal/timeref"
	"goldwatch/pkg/utils"
)

const sendTimeout = 5 * time.Second

// maxLogContent bounds the content stored per push log entry.
const maxLogContent = 1000

// Sender delivers one text message classified by push type. The returned
// bool reports whether the remote endpoint acknowledged the message;
// ordinary delivery failure is a false return, never an error.
type Sender interface {
	Send(ctx context.Context, pushType models.PushType, content string) bool
}

// WebhookSender posts text messages to a DingTalk-style webhook. Success is
// the endpoint reporting errcode 0 in the response body, not merely HTTP
// 200. Every attempt, success or failure, lands in the push log.
type WebhookSender struct {
	url    string
	store  store.Store
	logger zerolog.Logger
	client *resty.Client
}

// NewWebhookSender creates a webhook sender. An empty URL is tolerated;
// every send then fails with a logged warning instead of an error.
func NewWebhookSender(url string, s store.Store, logger zerolog.Logger) *WebhookSender {
	return &WebhookSender{
		url:    url,
		store:  s,
		logger: logger,
		client: resty.New().SetTimeout(sendTimeout),
	}
}

type textMessage struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

// Send delivers content to the webhook and records the attempt.
func (w *WebhookSender) Send(ctx context.Context, pushType models.PushType, content string) bool {
	if w.url == "" {
		w.logger.Warn().Msg("Webhook endpoint not configured, dropping notification")
		w.logAttempt(ctx, pushType, content, false, "webhook endpoint not configured")
		return false
	}

	msg := textMessage{MsgType: "text"}
	msg.Text.Content = content

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		Post(w.url)
	if err != nil {
		w.logger.Error().Err(err).Msg("Webhook request failed")
		w.logAttempt(ctx, pushType, content, false, err.Error())
		return false
	}

	errcode := gjson.GetBytes(resp.Body(), "errcode")
	if resp.StatusCode() != 200 || !errcode.Exists() || errcode.Int() != 0 {
		detail := fmt.Sprintf("status %d, body %s", resp.StatusCode(), utils.Truncate(string(resp.Body()), 200))
		w.logger.Error().Str("detail", detail).Msg("Webhook rejected message")
		w.logAttempt(ctx, pushType, content, false, detail)
		return false
	}

	w.logAttempt(ctx, pushType, content, true, "")
	return true
}

func (w *WebhookSender) logAttempt(ctx context.Context, pushType models.PushType, content string, success bool, detail string) {
	logging.LogPush(w.logger, string(pushType), success, detail)
	entry := &models.PushLog{
		Type:    pushType,
		Content: utils.Truncate(content, maxLogContent),
		Success: success,
		Error:   detail,
	}
	if err := w.store.AppendPushLog(ctx, entry); err != nil {
		w.logger.Error().Err(err).Msg("Failed to record push log")
	}
}

// NopSender discards notifications. Used in tests and when pushes are not
// wanted.
type NopSender struct{}

// Send reports success without delivering anything.
func (NopSender) Send(ctx context.Context, pushType models.PushType, content string) bool {
	return true
}

const timestampLayout = "2006-01-02 15:04:05"

// FormatHourlyReport renders the hourly report template from today's stats.
func FormatHourlyReport(stats *models.TodayStats, now time.Time) string {
	now = timeref.In(now)
	return fmt.Sprintf(`【黄金价格小时报】%d:00
当前AUTD价格：%.2f 元/克
最高价：%.2f 元/克
最低价：%.2f 元/克
今日涨跌幅：%s%%（%s元）
今日最高：%.2f 元/克
今日最低：%.2f 元/克
今日平均：%.2f 元/克
机构卖出价：%.2f 元/克
数据采集时间：%s`,
		now.Hour(),
		stats.Price,
		stats.HighPrice,
		stats.LowPrice,
		utils.FormatSigned(stats.ChangePercent),
		utils.FormatSigned(stats.ChangeAmount),
		stats.DayHigh,
		stats.DayLow,
		stats.AvgPrice,
		stats.SellPrice,
		timeref.In(stats.CollectedAt).Format(timestampLayout))
}

// FormatDailyReport renders the daily report template for one full day.
func FormatDailyReport(summary *models.DailySummary) string {
	return fmt.Sprintf(`【黄金价格日报 - %s】
AUTD（黄金延期）：
开盘：%.2f 元/克
收盘：%.2f 元/克
最高：%.2f 元/克
最低：%.2f 元/克
涨跌幅：%s%%`,
		summary.Date,
		summary.OpenPrice,
		summary.ClosePrice,
		summary.HighPrice,
		summary.LowPrice,
		utils.FormatSigned(summary.ChangePercent))
}

// FormatAlert renders the threshold-crossing alert template.
func FormatAlert(price, target float64, high bool, now time.Time) string {
	direction := "跌破"
	if high {
		direction = "突破"
	}
	return fmt.Sprintf(`【黄金价格预警】⚠️
AUTD价格%s目标价！
当前价格：%.2f 元/克
目标价格：%.2f 元/克
时间：%s`,
		direction, price, target,
		timeref.In(now).Format(timestampLayout))
}

// FormatFailureAlert renders the operational alert sent after a job's
// consecutive-failure threshold is reached.
func FormatFailureAlert(jobName, errMsg string, now time.Time) string {
	return fmt.Sprintf(`【系统异常告警】❌
数据采集连续失败3次
最后一次错误：%s: %s
时间：%s`,
		jobName, errMsg,
		timeref.In(now).Format(timestampLayout))
}

// FormatShopFailureAlert renders the shop-price collection failure alert.
// The message carries the 黄金 keyword so downstream webhook filters route it.
func FormatShopFailureAlert(errMsg string, now time.Time) string {
	return fmt.Sprintf(`⚠️ 黄金金店价格采集失败告警

错误信息：%s
时间：%s

请检查网站访问状态或手动触发采集`,
		errMsg,
		timeref.In(now).Format(timestampLayout))
}
