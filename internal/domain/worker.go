package domain

import "time"

type WorkerKind string

const (
	WorkerKindStaff  WorkerKind = "staff"
	WorkerKindAgency WorkerKind = "agency"
)

type Agency struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contactEmail"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Worker struct {
	ID             int64      `json:"id"`
	Kind           WorkerKind `json:"kind"`
	FullName       string     `json:"fullName"`
	Email          string     `json:"email"`
	TelegramChatID *int64     `json:"telegramChatID"`
	IsActive       bool       `json:"isActive"`

	// 正式员工的费率
	StandardRate float64 `json:"standardRate"`
	EnhancedRate float64 `json:"enhancedRate"`
	NightRate    float64 `json:"nightRate"`

	// 派遣员工的费率及合同
	HourlyRate    float64    `json:"hourlyRate"`
	AgencyID      *int64     `json:"agencyID"`
	ContractStart *time.Time `json:"contractStart"`
	ContractEnd   *time.Time `json:"contractEnd"`

	// 用于计算假期累积，为空时使用 CreatedAt
	EmploymentStart *time.Time `json:"employmentStart"`

	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

func (w *Worker) IsAgency() bool {
	return w.Kind == WorkerKindAgency
}

// CoversDate 检查派遣合同是否覆盖指定日期，非派遣员工总是返回 true
func (w *Worker) CoversDate(date time.Time) bool {
	if !w.IsAgency() {
		return true
	}
	d := DateOnly(date)
	if w.ContractStart != nil && d.Before(DateOnly(*w.ContractStart)) {
		return false
	}
	if w.ContractEnd != nil && d.After(DateOnly(*w.ContractEnd)) {
		return false
	}
	return true
}

// ServiceStart 返回计算工龄的起点
func (w *Worker) ServiceStart() time.Time {
	switch {
	case w.EmploymentStart != nil:
		return DateOnly(*w.EmploymentStart)
	case w.IsAgency() && w.ContractStart != nil:
		return DateOnly(*w.ContractStart)
	default:
		return DateOnly(w.CreatedAt)
	}
}
