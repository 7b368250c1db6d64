// Package approval 实现需要人工审批的分配流程。
//
// 每个批次只有两种结局：Proposed -> Committed 或 Proposed -> Discarded。
// 只有可升级类冲突的批次会被挂起，等待管理员填写审批人与理由后重新校验。
package approval

import (
	"time"

	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/constraint"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

type State string

const (
	StateProposed  State = "proposed"
	StateCommitted State = "committed"
	StateDiscarded State = "discarded"
)

type Batch struct {
	ID         string             `json:"id"`
	State      State              `json:"state"`
	Candidates []*domain.Shift    `json:"candidates"`
	Violations []domain.Violation `json:"violations"`
	Approval   *Approval          `json:"approval,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// RequiresApproval 批次存在可升级类冲突，需要审批后才能提交
func (b *Batch) RequiresApproval() bool {
	return b.State == StateProposed && len(b.Violations) > 0 && b.Approval == nil
}

func (b *Batch) MarkCommitted() {
	b.State = StateCommitted
}

func (b *Batch) Discard() {
	b.State = StateDiscarded
}

// PendingError 返回给调用方的审批请求，附带触发审批的规则
func (b *Batch) PendingError() *domain.Error {
	return &domain.Error{
		Kind:       domain.KindValidationEscalatable,
		Message:    "该分配需要审批人与审批理由",
		Violations: b.Violations,
		BatchID:    b.ID,
	}
}

type Workflow struct {
	checker *constraint.Checker
	now     func() time.Time
}

func NewWorkflow(checker *constraint.Checker) *Workflow {
	return &Workflow{checker: checker, now: time.Now}
}

func (w *Workflow) Checker() *constraint.Checker {
	return w.checker
}

func blockingError(violations []domain.Violation) *domain.Error {
	return &domain.Error{
		Kind:       domain.KindValidationBlocking,
		Message:    "分配违反约束，已拒绝",
		Violations: violations,
	}
}

// Propose 检查候选班次，阻断类冲突直接返回错误，否则返回处于 Proposed 状态的批次
func (w *Workflow) Propose(in constraint.Input) (*Batch, error) {
	for _, cand := range in.Candidates {
		if err := ValidateTwentyFourHour(cand); err != nil {
			return nil, err
		}
	}

	res := w.checker.Check(in)
	if res.HasBlocking() {
		return nil, blockingError(res.Violations)
	}

	return &Batch{
		ID:         uuid.NewString(),
		State:      StateProposed,
		Candidates: in.Candidates,
		Violations: res.Violations,
		CreatedAt:  w.now(),
	}, nil
}

// Resolve 处理管理员对挂起批次的答复。
// 审批信息为空时批次被丢弃且没有任何副作用；审批信息不完整时返回 ApprovalIncomplete，批次保持 Proposed。
// 否则带着审批信息重新校验 committed 的最新快照，出现新的阻断类冲突时整个批次被丢弃。
func (w *Workflow) Resolve(batch *Batch, committed []*domain.Shift, approval *Approval, lookups constraint.Input) error {
	if batch.State != StateProposed {
		return domain.NewError(domain.KindInvalidTransition, "批次 %s 已处于 %s 状态", batch.ID, batch.State)
	}
	if approval.IsEmpty() {
		batch.Discard()
		return nil
	}
	if err := approval.Validate(); err != nil {
		return err
	}

	for _, cand := range batch.Candidates {
		approval.StampDuplicate(cand)
	}

	res := w.checker.Check(constraint.Input{
		Candidates: batch.Candidates,
		Committed:  committed,
		Workers:    lookups.Workers,
		Sites:      lookups.Sites,
	})
	if !res.Valid {
		batch.Discard()
		batch.Violations = res.Violations
		return blockingError(res.Violations)
	}

	batch.Approval = approval
	batch.Violations = nil
	return nil
}
