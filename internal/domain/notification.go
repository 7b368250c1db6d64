package domain

import "time"

type NotificationType string

const (
	NotificationShiftAssigned  NotificationType = "shift_assigned"
	NotificationShiftChanged   NotificationType = "shift_changed"
	NotificationShiftRemoved   NotificationType = "shift_removed"
	NotificationShiftResponded NotificationType = "shift_responded"
	NotificationLeaveReviewed  NotificationType = "leave_reviewed"
)

// NotificationMessage 发送到消息队列中的通知
type NotificationMessage struct {
	Type     NotificationType `json:"type"`
	To       string           `json:"to"`
	ChatID   *int64           `json:"chatID"`
	FullName string           `json:"fullName"`
	Data     any              `json:"data"`
}

type ShiftNotificationData struct {
	ShiftID        int64          `json:"shiftID"`
	SiteName       string         `json:"siteName"`
	Date           time.Time      `json:"date"`
	StartTime      string         `json:"startTime"`
	EndTime        string         `json:"endTime"`
	Classification Classification `json:"classification"`
	Status         ResponseStatus `json:"status"`
	Reason         string         `json:"reason"`
}

type LeaveNotificationData struct {
	LeaveRequestID  int64       `json:"leaveRequestID"`
	StartDate       time.Time   `json:"startDate"`
	EndDate         time.Time   `json:"endDate"`
	Status          LeaveStatus `json:"status"`
	ReviewedBy      string      `json:"reviewedBy"`
	RejectionReason string      `json:"rejectionReason"`
}
