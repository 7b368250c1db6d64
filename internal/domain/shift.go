package domain

import (
	"time"
)

type Classification string

const (
	ClassificationDay   Classification = "Day"
	ClassificationNight Classification = "Night"
)

// Opposite 返回另一个班次类型
func (c Classification) Opposite() Classification {
	if c == ClassificationDay {
		return ClassificationNight
	}
	return ClassificationDay
}

type ResponseStatus string

const (
	StatusPending  ResponseStatus = "pending"
	StatusAccepted ResponseStatus = "accepted"
	StatusDeclined ResponseStatus = "declined"
)

type Extension struct {
	Hours    float64 `json:"hours"`
	Reason   string  `json:"reason"`
	Approver string  `json:"approver"`
	// ApprovalReason 审批人填写的理由，自动通过时为空
	ApprovalReason string    `json:"approvalReason"`
	AutoApproved   bool      `json:"autoApproved"`
	ApprovedAt     time.Time `json:"approvedAt"`
}

type Shift struct {
	ID       int64  `json:"id"`
	SiteID   int64  `json:"siteID"`
	WorkerID *int64 `json:"workerID"` // 为空表示 bank 占位，即有意留空的班次

	Date           time.Time      `json:"date"`
	StartTime      string         `json:"startTime"`
	EndTime        string         `json:"endTime"`
	StartsNextDay  bool           `json:"startsNextDay"` // 拆分跨夜班次时，后半段从次日开始
	Duration       float64        `json:"duration"`      // 小时，包含延长时间，是计算工资的依据
	Classification Classification `json:"classification"`

	Is24Hour               bool   `json:"is24Hour"`
	TwentyFourHourApprover string `json:"twentyFourHourApprover"`
	TwentyFourHourReason   string `json:"twentyFourHourReason"`

	DuplicateApprover string `json:"duplicateApprover"`
	DuplicateReason   string `json:"duplicateReason"`

	Extension *Extension `json:"extension"`

	Status        ResponseStatus `json:"status"`
	DeclineReason string         `json:"declineReason"`
	Notes         string         `json:"notes"`

	ClockIn  *time.Time `json:"clockIn"`
	ClockOut *time.Time `json:"clockOut"`

	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

func (s *Shift) IsBank() bool {
	return s.WorkerID == nil
}

func (s *Shift) IsDeclined() bool {
	return s.Status == StatusDeclined
}

// AssignedTo 检查班次是否分配给指定员工
func (s *Shift) AssignedTo(workerID int64) bool {
	return s.WorkerID != nil && *s.WorkerID == workerID
}

// Covers 检查班次是否占据指定类型的时段，24 小时班次同时占据白班和夜班
func (s *Shift) Covers(c Classification) bool {
	return s.Is24Hour || s.Classification == c
}

// ExtensionHours 返回已经批准的延长小时数
func (s *Shift) ExtensionHours() float64 {
	if s.Extension == nil {
		return 0
	}
	return s.Extension.Hours
}

// Normalize 根据开始/结束时间重新计算类型与时长
func (s *Shift) Normalize() error {
	base, err := OvernightAwareDuration(s.StartTime, s.EndTime)
	if err != nil {
		return err
	}
	c, err := Classify(s.StartTime)
	if err != nil {
		return err
	}
	s.Date = DateOnly(s.Date)
	s.Classification = c
	s.Duration = base + s.ExtensionHours()
	if s.Status == "" {
		s.Status = StatusPending
	}
	return nil
}

// StartAt 返回班次开始的绝对时间
func (s *Shift) StartAt() time.Time {
	m, _ := ParseClock(s.StartTime)
	start := DateOnly(s.Date).Add(time.Duration(m) * time.Minute)
	if s.StartsNextDay {
		start = start.AddDate(0, 0, 1)
	}
	return start
}

// EndAt 返回班次结束的绝对时间，延长的小时数追加在结束时间之后
func (s *Shift) EndAt() time.Time {
	return s.StartAt().Add(HoursToDuration(s.Duration))
}

func (s *Shift) Clone() *Shift {
	c := *s
	if s.WorkerID != nil {
		id := *s.WorkerID
		c.WorkerID = &id
	}
	if s.Extension != nil {
		ext := *s.Extension
		c.Extension = &ext
	}
	if s.ClockIn != nil {
		t := *s.ClockIn
		c.ClockIn = &t
	}
	if s.ClockOut != nil {
		t := *s.ClockOut
		c.ClockOut = &t
	}
	return &c
}
