package domain

import "time"

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

type LeaveRequest struct {
	ID              int64       `json:"id"`
	WorkerID        int64       `json:"workerID"`
	StartDate       time.Time   `json:"startDate"`
	EndDate         time.Time   `json:"endDate"` // 包含当天
	TotalDays       int         `json:"totalDays"`
	TotalHours      float64     `json:"totalHours"`
	Reason          string      `json:"reason"`
	Status          LeaveStatus `json:"status"`
	ReviewedBy      string      `json:"reviewedBy"`
	ReviewNotes     string      `json:"reviewNotes"`
	ReviewedAt      *time.Time  `json:"reviewedAt"`
	RejectionReason string      `json:"rejectionReason"`
	CreatedAt       time.Time   `json:"createdAt"`
	Version         int32       `json:"-"`
}

func (l *LeaveRequest) IsApproved() bool {
	return l.Status == LeaveStatusApproved
}

type LeaveBalance struct {
	WorkerID          int64      `json:"workerID"`
	Year              int        `json:"year"`
	EntitlementHours  float64    `json:"entitlementHours"`
	HoursAccrued      float64    `json:"hoursAccrued"`
	HoursUsed         float64    `json:"hoursUsed"`
	HoursRemaining    float64    `json:"hoursRemaining"`
	CarryOverHours    float64    `json:"carryOverHours"`
	QuartersCompleted int        `json:"quartersCompleted"`
	NextAccrualDate   *time.Time `json:"nextAccrualDate"`
	NextAccrualHours  float64    `json:"nextAccrualHours"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
