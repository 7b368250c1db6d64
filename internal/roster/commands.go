package roster

import (
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

func invalidShift(format string, args ...any) *domain.Error {
	e := domain.NewError(domain.KindValidationBlocking, format, args...)
	e.Violations = []domain.Violation{{
		Rule:     domain.RuleInvalidShift,
		Severity: domain.SeverityBlocking,
		Message:  e.Message,
	}}
	return e
}

type CreateCommand struct {
	Candidates []*domain.Shift
	Approval   *approval.Approval
}

func (c *CreateCommand) Validate() error {
	if len(c.Candidates) == 0 {
		return invalidShift("至少需要一个候选班次")
	}
	for _, s := range c.Candidates {
		if s.ID != 0 {
			return invalidShift("新建班次不能指定 ID")
		}
		if s.SiteID == 0 || s.Date.IsZero() {
			return invalidShift("候选班次必须指定站点与日期")
		}
		if s.Status != "" && s.Status != domain.StatusPending {
			return invalidShift("新建班次只能处于 pending 状态")
		}
		if s.Is24Hour {
			s.StartTime = twentyFourHourStart
			s.EndTime = twentyFourHourStart
			s.StartsNextDay = false
		}
		if err := s.Normalize(); err != nil {
			return invalidShift("%s", err.Error())
		}
	}
	return nil
}

type SplitShiftCommand struct {
	ShiftID     int64
	SplitTime   string
	NewWorkerID *int64
	Notes       string
}

func (c *SplitShiftCommand) Validate() error {
	if _, err := domain.ParseClock(c.SplitTime); err != nil {
		return invalidShift("%s", err.Error())
	}
	return nil
}

type ExtendShiftCommand struct {
	ShiftID  int64
	Hours    float64
	Reason   string
	Approval *approval.Approval
}

func (c *ExtendShiftCommand) Validate() error {
	if c.Hours <= 0 {
		return invalidShift("延长小时数必须大于 0")
	}
	return nil
}

// EditShiftCommand 为空的字段保持不变
type EditShiftCommand struct {
	ShiftID   int64
	Date      *time.Time
	StartTime *string
	EndTime   *string
	Notes     *string
	Approval  *approval.Approval
}

func (c *EditShiftCommand) Validate() error {
	for _, v := range []*string{c.StartTime, c.EndTime} {
		if v == nil {
			continue
		}
		if _, err := domain.ParseClock(*v); err != nil {
			return invalidShift("%s", err.Error())
		}
	}
	return nil
}

// Resolution 删除班次会产生空缺时，管理员选择的处理方式
type Resolution struct {
	Kind domain.ResolutionKind
	// ReplacementWorkerID 用于 replace，为空表示由 bank 占位
	ReplacementWorkerID *int64
	// Approval 用于 convertTo24h，以及 replace 触发可升级冲突时
	Approval *approval.Approval
	// Reason 用于 deleteBoth，必填
	Reason string
}

type RemoveShiftCommand struct {
	ShiftID    int64
	Resolution *Resolution
}

func (c *RemoveShiftCommand) Validate() error {
	if c.Resolution == nil {
		return nil
	}
	switch c.Resolution.Kind {
	case domain.ResolutionReplace, domain.ResolutionConvertTo24h, domain.ResolutionAbort:
		return nil
	case domain.ResolutionDeleteBoth:
		if strings.TrimSpace(c.Resolution.Reason) == "" {
			return domain.NewError(domain.KindApprovalIncomplete, "同时删除两个班次必须填写理由")
		}
		return nil
	default:
		return invalidShift("未知的处理方式 %q", c.Resolution.Kind)
	}
}

type UpdateStatusCommand struct {
	ShiftID int64
	Status  domain.ResponseStatus
	Reason  string
}

func (c *UpdateStatusCommand) Validate() error {
	if c.Status != domain.StatusAccepted && c.Status != domain.StatusDeclined {
		return domain.NewError(domain.KindInvalidTransition, "班次状态只能更新为 accepted 或 declined")
	}
	return nil
}

type PunchKind string

const (
	PunchIn  PunchKind = "in"
	PunchOut PunchKind = "out"
)

type PunchCommand struct {
	ShiftID int64
	Kind    PunchKind
	At      time.Time
}

func (c *PunchCommand) Validate() error {
	if c.Kind != PunchIn && c.Kind != PunchOut {
		return invalidShift("打卡类型只能是 in 或 out")
	}
	if c.At.IsZero() {
		return invalidShift("必须指定打卡时间")
	}
	return nil
}
