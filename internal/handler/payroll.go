package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/payroll"
)

// periodFromQuery 优先使用 from/to；否则根据 date 与 cycle=week|pay 取所在的周或工资周期
func periodFromQuery(r *http.Request) (payroll.Period, error) {
	q := r.URL.Query()

	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := parseDate(q.Get("from"))
		if err != nil {
			return payroll.Period{}, err
		}
		to, err := parseDate(q.Get("to"))
		if err != nil {
			return payroll.Period{}, err
		}
		return payroll.NewPeriod(from, to)
	}

	date := time.Now()
	if s := q.Get("date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return payroll.Period{}, err
		}
		date = d
	}

	switch q.Get("cycle") {
	case "week":
		return payroll.WeekContaining(date), nil
	case "", "pay":
		return payroll.CycleContaining(date), nil
	default:
		return payroll.Period{}, errors.New("cycle 只能是 week 或 pay")
	}
}

func (h *Handler) GetWorkerPay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "员工")
	if !ok {
		return
	}
	p, err := periodFromQuery(r)
	if err != nil {
		h.periodError(w, r, err)
		return
	}

	breakdown, err := h.payroll.CalculatePayPeriod(r.Context(), id, p)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "工资计算成功", breakdown)
}

func (h *Handler) GetPayRun(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		h.periodError(w, r, err)
		return
	}

	rows, err := h.payroll.CalculatePayRun(r.Context(), p)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "工资计算成功", rows)
}

func (h *Handler) ExportPayRun(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		h.periodError(w, r, err)
		return
	}

	rows, err := h.payroll.CalculatePayRun(r.Context(), p)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	// 先写入缓冲区，出错时仍可以返回 JSON 错误
	buf := &bytes.Buffer{}
	if err := payroll.ExportPayRun(buf, p, rows); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	filename := fmt.Sprintf("payroll_%s_%s.xlsx", p.Start.Format("20060102"), p.LastDay().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}

// periodError 日期格式错误属于结构化错误，其余的是查询参数错误
func (h *Handler) periodError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.KindOf(err) != "" {
		h.engineError(w, r, err)
		return
	}
	h.badRequest(w, r, err)
}
