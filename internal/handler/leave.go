package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/leave"
)

func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var workerID *int64
	if s := q.Get("workerID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("员工ID无效"))
			return
		}
		workerID = &id
	}

	var status *domain.LeaveStatus
	if s := q.Get("status"); s != "" {
		st := domain.LeaveStatus(s)
		switch st {
		case domain.LeaveStatusPending, domain.LeaveStatusApproved, domain.LeaveStatusRejected:
			status = &st
		default:
			h.badRequest(w, r, errors.New("请假状态无效"))
			return
		}
	}

	requests, err := h.repository.ListLeaveRequests(r.Context(), workerID, status)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取请假申请成功", requests)
}

func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerID  int64  `json:"workerID" validate:"required,gt=0"`
		StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
		EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
		Reason    string `json:"reason" validate:"max=500"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	lr, err := h.leave.Submit(r.Context(), leave.SubmitCommand{
		WorkerID:  req.WorkerID,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "请假申请已提交", lr)
}

// ReviewLeaveRequest 审批人为当前登录的管理员
func (h *Handler) ReviewLeaveRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.Administrator)

	id, ok := h.pathID(w, r, "请假申请")
	if !ok {
		return
	}

	var req struct {
		Approve         *bool  `json:"approve" validate:"required"`
		Notes           string `json:"notes" validate:"max=500"`
		RejectionReason string `json:"rejectionReason" validate:"max=500"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	lr, err := h.leave.Review(r.Context(), leave.ReviewCommand{
		ID:              id,
		Approve:         *req.Approve,
		ReviewedBy:      myInfo.FullName,
		Notes:           req.Notes,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "请假申请已审批", lr)
}
