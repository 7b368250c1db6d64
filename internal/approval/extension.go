package approval

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// ExtensionPolicy 延长班次的审批规则：
// 不超过 AutoApproveHours 自动通过，不超过 MaxHours 需要审批，超过 MaxHours 直接拒绝
type ExtensionPolicy struct {
	AutoApproveHours float64
	MaxHours         float64
}

func DefaultExtensionPolicy() ExtensionPolicy {
	return ExtensionPolicy{
		AutoApproveHours: 3,
		MaxHours:         12,
	}
}

// Decide 根据延长后的总小时数生成延长记录，approval 仅在需要审批时使用
func (p ExtensionPolicy) Decide(totalHours float64, reason string, approval *Approval, now time.Time) (*domain.Extension, error) {
	if totalHours <= 0 {
		return nil, &domain.Error{
			Kind:    domain.KindValidationBlocking,
			Message: "延长小时数必须大于 0",
			Violations: []domain.Violation{{
				Rule: domain.RuleInvalidShift, Severity: domain.SeverityBlocking, Message: "延长小时数必须大于 0",
			}},
		}
	}
	if totalHours > p.MaxHours {
		return nil, &domain.Error{
			Kind:    domain.KindValidationBlocking,
			Message: "延长时间超过上限",
			Violations: []domain.Violation{{
				Rule: domain.RuleExtensionLimit, Severity: domain.SeverityBlocking,
				Message: fmt.Sprintf("延长时间 %.1f 小时超过上限 %.0f 小时", totalHours, p.MaxHours),
			}},
		}
	}

	ext := &domain.Extension{
		Hours:      totalHours,
		Reason:     reason,
		ApprovedAt: now,
	}
	if totalHours <= p.AutoApproveHours {
		ext.AutoApproved = true
		return ext, nil
	}

	if err := approval.Validate(); err != nil {
		return nil, err
	}
	ext.Approver = approval.Approver
	ext.ApprovalReason = approval.Reason
	return ext, nil
}
