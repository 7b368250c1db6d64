package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ErrorKind string

const (
	KindValidationBlocking    ErrorKind = "ValidationBlocking"
	KindValidationEscalatable ErrorKind = "ValidationEscalatable"
	KindApprovalIncomplete    ErrorKind = "ApprovalIncomplete"
	KindCoverageConflict      ErrorKind = "CoverageConflict"
	KindNotFound              ErrorKind = "NotFound"
	KindInvalidTransition     ErrorKind = "InvalidTransition"
	KindEditConflict          ErrorKind = "EditConflict"
)

type Severity string

const (
	SeverityBlocking    Severity = "blocking"
	SeverityEscalatable Severity = "escalatable"
)

type Rule string

const (
	RuleBatchDuplicateWorker Rule = "batch-duplicate-worker"
	RuleWorkerUnavailable    Rule = "worker-unavailable"
	RuleDoubleBooking        Rule = "double-booking"
	RuleSiteExclusivity      Rule = "site-exclusivity"
	RuleRestPeriod           Rule = "rest-period"
	RuleSiteCap              Rule = "site-cap"
	RuleDuplicateShift       Rule = "duplicate-shift"
	RuleMultiWorker          Rule = "multi-worker"
	RuleExtensionLimit       Rule = "extension-limit"
	RuleInvalidShift         Rule = "invalid-shift"
)

// Violation 单条约束冲突
type Violation struct {
	Rule           Rule           `json:"rule"`
	Severity       Severity       `json:"severity"`
	CandidateIndex int            `json:"candidateIndex"`
	SiteID         int64          `json:"siteID"`
	WorkerID       *int64         `json:"workerID"`
	Date           time.Time      `json:"date"`
	Classification Classification `json:"classification"`
	Message        string         `json:"message"`
}

func (v Violation) IsBlocking() bool {
	return v.Severity == SeverityBlocking
}

type ResolutionKind string

const (
	ResolutionReplace      ResolutionKind = "replace"
	ResolutionConvertTo24h ResolutionKind = "convertTo24h"
	ResolutionAbort        ResolutionKind = "abort"
	ResolutionDeleteBoth   ResolutionKind = "deleteBoth"
)

// Error 引擎返回的结构化错误，由传输层翻译为具体的响应
type Error struct {
	Kind       ErrorKind        `json:"kind"`
	Message    string           `json:"message"`
	Violations []Violation      `json:"violations,omitempty"`
	Options    []ResolutionKind `json:"options,omitempty"`
	BatchID    string           `json:"batchID,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(msgs, "; "))
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id int64) *Error {
	return NewError(KindNotFound, "%s %d 不存在", entity, id)
}

// KindOf 返回错误链中第一个 *Error 的类型，非引擎错误返回空字符串
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 检查错误是否为指定类型
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ErrEditConflict 乐观锁冲突：记录已被其他操作修改
var ErrEditConflict = &Error{Kind: KindEditConflict, Message: "数据已被其他操作修改，请刷新后重试"}
