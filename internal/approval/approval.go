package approval

import (
	"strings"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// Approval 审批人与理由，两者都必须填写；审批人是管理员自由填写的身份字符串
type Approval struct {
	Approver string `json:"approver"`
	Reason   string `json:"reason"`
}

func (a *Approval) IsEmpty() bool {
	return a == nil || (strings.TrimSpace(a.Approver) == "" && strings.TrimSpace(a.Reason) == "")
}

func (a *Approval) Validate() error {
	if a == nil || strings.TrimSpace(a.Approver) == "" {
		return domain.NewError(domain.KindApprovalIncomplete, "必须填写审批人")
	}
	if strings.TrimSpace(a.Reason) == "" {
		return domain.NewError(domain.KindApprovalIncomplete, "必须填写审批理由")
	}
	return nil
}

// StampDuplicate 将审批信息写入候选班次，用于满足重复班次与多人班次规则
func (a *Approval) StampDuplicate(s *domain.Shift) {
	s.DuplicateApprover = strings.TrimSpace(a.Approver)
	s.DuplicateReason = strings.TrimSpace(a.Reason)
}

// StampTwentyFourHour 将班次标记为经过审批的 24 小时班次
func (a *Approval) StampTwentyFourHour(s *domain.Shift) {
	s.Is24Hour = true
	s.TwentyFourHourApprover = strings.TrimSpace(a.Approver)
	s.TwentyFourHourReason = strings.TrimSpace(a.Reason)
}

// ValidateTwentyFourHour 24 小时班次必须带有审批人与理由
func ValidateTwentyFourHour(s *domain.Shift) error {
	if !s.Is24Hour {
		return nil
	}
	if strings.TrimSpace(s.TwentyFourHourApprover) == "" || strings.TrimSpace(s.TwentyFourHourReason) == "" {
		return domain.NewError(domain.KindApprovalIncomplete, "24 小时班次必须填写审批人与审批理由")
	}
	return nil
}
