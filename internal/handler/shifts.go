package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/roster"
)

type shiftRequest struct {
	SiteID                 int64  `json:"siteID" validate:"required,gt=0"`
	WorkerID               *int64 `json:"workerID" validate:"omitempty,gt=0"`
	Date                   string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime              string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime                string `json:"endTime" validate:"required,datetime=15:04"`
	Is24Hour               bool   `json:"is24Hour"`
	TwentyFourHourApprover string `json:"twentyFourHourApprover"`
	TwentyFourHourReason   string `json:"twentyFourHourReason"`
	Notes                  string `json:"notes" validate:"max=500"`
}

func (req *shiftRequest) toShift() (*domain.Shift, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	return &domain.Shift{
		SiteID:                 req.SiteID,
		WorkerID:               req.WorkerID,
		Date:                   date,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		Is24Hour:               req.Is24Hour,
		TwentyFourHourApprover: req.TwentyFourHourApprover,
		TwentyFourHourReason:   req.TwentyFourHourReason,
		Notes:                  req.Notes,
		Status:                 domain.StatusPending,
	}, nil
}

func toShifts(reqs []shiftRequest) ([]*domain.Shift, error) {
	shifts := make([]*domain.Shift, 0, len(reqs))
	for i := range reqs {
		s, err := reqs[i].toShift()
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, nil
}

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	if !to.After(from) {
		h.badRequest(w, r, errors.New("结束日期必须晚于开始日期"))
		return
	}

	var siteID *int64
	if s := q.Get("siteID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("站点ID无效"))
			return
		}
		siteID = &id
	}

	shifts, err := h.repository.ListShifts(r.Context(), from, to, siteID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	shift, err := h.repository.GetShiftByID(r.Context(), id)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次成功", shift)
}

// ValidateShifts 只做校验，不写入任何数据
func (h *Handler) ValidateShifts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shifts []shiftRequest `json:"shifts" validate:"required,min=1,dive"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	candidates, err := toShifts(req.Shifts)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	result, err := h.roster.Validate(r.Context(), candidates)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "校验完成", result)
}

func (h *Handler) CreateShifts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shifts   []shiftRequest     `json:"shifts" validate:"required,min=1,dive"`
		Approval *approval.Approval `json:"approval"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	candidates, err := toShifts(req.Shifts)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	shifts, err := h.roster.Create(r.Context(), roster.CreateCommand{
		Candidates: candidates,
		Approval:   req.Approval,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次分配成功", shifts)
}

func (h *Handler) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	var req approval.Approval
	if !h.readRequest(w, r, &req) {
		return
	}

	state, shifts, err := h.roster.ApproveBatch(r.Context(), batchID, &req)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	data := struct {
		State  approval.State  `json:"state"`
		Shifts []*domain.Shift `json:"shifts"`
	}{state, shifts}
	if state == approval.StateDiscarded {
		h.successResponse(w, r, "批次已丢弃", data)
		return
	}
	h.successResponse(w, r, "批次已审批并提交", data)
}

func (h *Handler) DiscardBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.roster.DiscardBatch(r.Context(), chi.URLParam(r, "batchID")); err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "批次已丢弃", nil)
}

func (h *Handler) EditShift(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	var req struct {
		Date      *string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
		StartTime *string            `json:"startTime" validate:"omitempty,datetime=15:04"`
		EndTime   *string            `json:"endTime" validate:"omitempty,datetime=15:04"`
		Notes     *string            `json:"notes" validate:"omitempty,max=500"`
		Approval  *approval.Approval `json:"approval"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	shift, err := h.roster.Edit(r.Context(), roster.EditShiftCommand{
		ShiftID:   id,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
		Approval:  req.Approval,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次修改成功", shift)
}

// RemoveShift 未给出处理方式且会产生空缺时返回 409，data.options 为可选的处理方式
func (h *Handler) RemoveShift(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	var req struct {
		Resolution *struct {
			Kind                domain.ResolutionKind `json:"kind" validate:"required,oneof=replace convertTo24h abort deleteBoth"`
			ReplacementWorkerID *int64                `json:"replacementWorkerID" validate:"omitempty,gt=0"`
			Approval            *approval.Approval    `json:"approval"`
			Reason              string                `json:"reason"`
		} `json:"resolution"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	cmd := roster.RemoveShiftCommand{ShiftID: id}
	if req.Resolution != nil {
		cmd.Resolution = &roster.Resolution{
			Kind:                req.Resolution.Kind,
			ReplacementWorkerID: req.Resolution.ReplacementWorkerID,
			Approval:            req.Resolution.Approval,
			Reason:              req.Resolution.Reason,
		}
	}

	if err := h.roster.Remove(r.Context(), cmd); err != nil {
		h.engineError(w, r, err)
		return
	}

	if cmd.Resolution != nil && cmd.Resolution.Kind == domain.ResolutionAbort {
		h.successResponse(w, r, "已取消删除", nil)
		return
	}
	h.successResponse(w, r, "班次删除成功", nil)
}

func (h *Handler) SplitShift(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	var req struct {
		SplitTime   string `json:"splitTime" validate:"required,datetime=15:04"`
		NewWorkerID *int64 `json:"newWorkerID" validate:"omitempty,gt=0"`
		Notes       string `json:"notes" validate:"max=500"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	parts, err := h.roster.Split(r.Context(), roster.SplitShiftCommand{
		ShiftID:     id,
		SplitTime:   req.SplitTime,
		NewWorkerID: req.NewWorkerID,
		Notes:       req.Notes,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次拆分成功", parts)
}

func (h *Handler) ExtendShift(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	var req struct {
		Hours    float64            `json:"hours" validate:"required,gt=0"`
		Reason   string             `json:"reason" validate:"required"`
		Approval *approval.Approval `json:"approval"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	shift, err := h.roster.Extend(r.Context(), roster.ExtendShiftCommand{
		ShiftID:  id,
		Hours:    req.Hours,
		Reason:   req.Reason,
		Approval: req.Approval,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次延长成功", shift)
}

func (h *Handler) ConvertShiftTo24h(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	var req approval.Approval
	if !h.readRequest(w, r, &req) {
		return
	}

	shift, err := h.roster.ConvertTo24h(r.Context(), id, &req)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "已转换为 24 小时班次", shift)
}

func (h *Handler) UpdateShiftStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	var req struct {
		Status domain.ResponseStatus `json:"status" validate:"required,oneof=accepted declined"`
		Reason string                `json:"reason" validate:"max=500"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	shift, err := h.roster.UpdateStatus(r.Context(), roster.UpdateStatusCommand{
		ShiftID: id,
		Status:  req.Status,
		Reason:  req.Reason,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次状态更新成功", shift)
}

func (h *Handler) PunchShift(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "班次")
	if !ok {
		return
	}

	var req struct {
		Kind roster.PunchKind `json:"kind" validate:"required,oneof=in out"`
		At   *time.Time       `json:"at"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	shift, err := h.roster.RecordPunch(r.Context(), roster.PunchCommand{
		ShiftID: id,
		Kind:    req.Kind,
		At:      at,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "打卡成功", shift)
}
