package domain

import "time"

type UnverifiedShift struct {
	ShiftID         int64     `json:"shiftID"`
	SiteID          int64     `json:"siteID"`
	Date            time.Time `json:"date"`
	Hours           float64   `json:"hours"`
	MissingClockIn  bool      `json:"missingClockIn"`
	MissingClockOut bool      `json:"missingClockOut"`
}

type PayBreakdown struct {
	WorkerID    int64      `json:"workerID"`
	WorkerName  string     `json:"workerName"`
	WorkerKind  WorkerKind `json:"workerKind"`
	PeriodStart time.Time  `json:"periodStart"`
	PeriodEnd   time.Time  `json:"periodEnd"` // 不包含当天

	ShiftCount  int     `json:"shiftCount"`
	DayHours    float64 `json:"dayHours"`
	NightHours  float64 `json:"nightHours"`
	WorkedHours float64 `json:"workedHours"`
	LeaveHours  float64 `json:"leaveHours"`
	TotalHours  float64 `json:"totalHours"`

	HourlyRate float64 `json:"hourlyRate"`
	LeaveRate  float64 `json:"leaveRate"`
	WorkPay    float64 `json:"workPay"`
	LeavePay   float64 `json:"leavePay"`
	TotalPay   float64 `json:"totalPay"`

	Unverified []UnverifiedShift `json:"unverified"`
}
