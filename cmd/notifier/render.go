package main

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// headlines 每种通知的标题与正文第一句
var headlines = map[domain.NotificationType][2]string{
	domain.NotificationShiftAssigned:  {"新的班次安排", "您有一个新的班次安排，请尽快确认。"},
	domain.NotificationShiftChanged:   {"班次变更", "您的班次有变更，请留意新的安排。"},
	domain.NotificationShiftRemoved:   {"班次取消", "您的以下班次已被取消。"},
	domain.NotificationShiftResponded: {"班次答复已记录", "您对以下班次的答复已记录。"},
	domain.NotificationLeaveReviewed:  {"请假审批结果", "您的请假申请已审批。"},
}

var statusNames = map[domain.ResponseStatus]string{
	domain.StatusPending:  "待确认",
	domain.StatusAccepted: "已接受",
	domain.StatusDeclined: "已拒绝",
}

var leaveStatusNames = map[domain.LeaveStatus]string{
	domain.LeaveStatusPending:  "待审批",
	domain.LeaveStatusApproved: "已批准",
	domain.LeaveStatusRejected: "未批准",
}

var funcs = map[string]any{
	"date": func(t time.Time) string { return t.Format(time.DateOnly) },
	"classification": func(c domain.Classification) string {
		if c == domain.ClassificationNight {
			return "夜班"
		}
		return "白班"
	},
	"status":      func(s domain.ResponseStatus) string { return statusNames[s] },
	"leaveStatus": func(s domain.LeaveStatus) string { return leaveStatusNames[s] },
}

type view struct {
	Subject  string
	Headline string
	FullName string
	Shift    *domain.ShiftNotificationData
	Leave    *domain.LeaveNotificationData
}

type rendered struct {
	To      string
	ChatID  *int64
	Subject string
	HTML    string
	Text    string
}

type renderer struct {
	email    *htmltemplate.Template
	telegram *texttemplate.Template
}

func newRenderer() (*renderer, error) {
	email, err := htmltemplate.New("").Funcs(htmltemplate.FuncMap(funcs)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("无法解析邮件模板: %w", err)
	}
	telegram, err := texttemplate.New("").Funcs(texttemplate.FuncMap(funcs)).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("无法解析 Telegram 模板: %w", err)
	}
	return &renderer{email: email, telegram: telegram}, nil
}

// render 根据通知类型选择模板，返回邮件与 Telegram 的内容
func (r *renderer) render(body []byte) (*rendered, error) {
	var msg struct {
		Type     domain.NotificationType `json:"type"`
		To       string                  `json:"to"`
		ChatID   *int64                  `json:"chatID"`
		FullName string                  `json:"fullName"`
		Data     json.RawMessage         `json:"data"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("通知反序列化失败: %w", err)
	}

	h, ok := headlines[msg.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的通知类型 %q", msg.Type)
	}
	v := view{Subject: "护理排班 - " + h[0], Headline: h[1], FullName: msg.FullName}

	name := "shift"
	if msg.Type == domain.NotificationLeaveReviewed {
		name = "leave"
		v.Leave = &domain.LeaveNotificationData{}
		if err := json.Unmarshal(msg.Data, v.Leave); err != nil {
			return nil, fmt.Errorf("通知数据反序列化失败: %w", err)
		}
	} else {
		v.Shift = &domain.ShiftNotificationData{}
		if err := json.Unmarshal(msg.Data, v.Shift); err != nil {
			return nil, fmt.Errorf("通知数据反序列化失败: %w", err)
		}
	}

	var html, text bytes.Buffer
	if err := r.email.ExecuteTemplate(&html, name+".html", v); err != nil {
		return nil, err
	}
	if err := r.telegram.ExecuteTemplate(&text, name+".tmpl", v); err != nil {
		return nil, err
	}

	return &rendered{
		To:      msg.To,
		ChatID:  msg.ChatID,
		Subject: v.Subject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}
