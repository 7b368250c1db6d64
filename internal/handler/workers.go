package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

func (h *Handler) GetAllWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repository.ListWorkers(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工列表成功", workers)
}

type workerRequest struct {
	FullName        *string  `json:"fullName" validate:"omitempty,max=64"`
	Email           *string  `json:"email" validate:"omitempty,email"`
	TelegramChatID  *int64   `json:"telegramChatID"`
	IsActive        *bool    `json:"isActive"`
	StandardRate    *float64 `json:"standardRate" validate:"omitempty,gte=0"`
	EnhancedRate    *float64 `json:"enhancedRate" validate:"omitempty,gte=0"`
	NightRate       *float64 `json:"nightRate" validate:"omitempty,gte=0"`
	HourlyRate      *float64 `json:"hourlyRate" validate:"omitempty,gte=0"`
	AgencyID        *int64   `json:"agencyID"`
	ContractStart   *string  `json:"contractStart"`
	ContractEnd     *string  `json:"contractEnd"`
	EmploymentStart *string  `json:"employmentStart"`
}

// apply 将请求中非空的字段写入 worker
func (req *workerRequest) apply(worker *domain.Worker) error {
	if req.FullName != nil {
		worker.FullName = *req.FullName
	}
	if req.Email != nil {
		worker.Email = *req.Email
	}
	if req.TelegramChatID != nil {
		worker.TelegramChatID = req.TelegramChatID
	}
	if req.IsActive != nil {
		worker.IsActive = *req.IsActive
	}
	if req.StandardRate != nil {
		worker.StandardRate = *req.StandardRate
	}
	if req.EnhancedRate != nil {
		worker.EnhancedRate = *req.EnhancedRate
	}
	if req.NightRate != nil {
		worker.NightRate = *req.NightRate
	}
	if req.HourlyRate != nil {
		worker.HourlyRate = *req.HourlyRate
	}
	if req.AgencyID != nil {
		worker.AgencyID = req.AgencyID
	}

	dates := []struct {
		src *string
		dst **time.Time
	}{
		{req.ContractStart, &worker.ContractStart},
		{req.ContractEnd, &worker.ContractEnd},
		{req.EmploymentStart, &worker.EmploymentStart},
	}
	for _, d := range dates {
		if d.src == nil {
			continue
		}
		t, err := parseOptionalDate(d.src)
		if err != nil {
			return err
		}
		*d.dst = t
	}

	if worker.ContractStart != nil && worker.ContractEnd != nil && worker.ContractEnd.Before(*worker.ContractStart) {
		return domain.NewError(domain.KindValidationBlocking, "合同结束日期不能早于开始日期")
	}
	return nil
}

func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     domain.WorkerKind `json:"kind" validate:"required,oneof=staff agency"`
		FullName string            `json:"fullName" validate:"required,max=64"`
		workerRequest
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	worker := &domain.Worker{
		Kind:     req.Kind,
		FullName: req.FullName,
	}
	if err := req.workerRequest.apply(worker); err != nil {
		h.engineError(w, r, err)
		return
	}
	if worker.IsAgency() && worker.AgencyID == nil {
		h.badRequest(w, r, errors.New("派遣员工必须指定派遣机构"))
		return
	}

	if err := h.repository.CreateWorker(r.Context(), worker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "workers_agency_id_fkey":
			h.badRequest(w, r, errors.New("派遣机构不存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "员工创建成功", worker)
}

func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)
	h.successResponse(w, r, "获取员工信息成功", worker)
}

func (h *Handler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)

	var req workerRequest
	if !h.readRequest(w, r, &req) {
		return
	}
	if err := req.apply(worker); err != nil {
		h.engineError(w, r, err)
		return
	}

	if err := h.repository.UpdateWorker(r.Context(), worker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "workers_agency_id_fkey":
			h.badRequest(w, r, errors.New("派遣机构不存在"))
		default:
			h.engineError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "员工信息更新成功", worker)
}

func (h *Handler) GetLeaveBalance(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)

	year := time.Now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1900 || y > 9999 {
			h.badRequest(w, r, errors.New("年份无效"))
			return
		}
		year = y
	}

	balance, err := h.leave.CalculateBalance(r.Context(), worker.ID, year)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取假期余额成功", balance)
}
