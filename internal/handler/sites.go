package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

func (h *Handler) GetAllSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.repository.GetAllSites(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取站点列表成功", sites)
}

func (h *Handler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name" validate:"required,max=64"`
		Color string `json:"color" validate:"omitempty,hexcolor"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	site := &domain.Site{
		Name:  req.Name,
		Color: req.Color,
	}
	if err := h.repository.CreateSite(r.Context(), site); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "sites_name_key":
			h.badRequest(w, r, errors.New("站点名称已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "站点创建成功", site)
}

func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	site := r.Context().Value(SiteCtx).(*domain.Site)
	h.successResponse(w, r, "获取站点成功", site)
}

func (h *Handler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	site := r.Context().Value(SiteCtx).(*domain.Site)

	var req struct {
		Name     *string `json:"name" validate:"omitempty,max=64"`
		Color    *string `json:"color" validate:"omitempty,hexcolor"`
		IsActive *bool   `json:"isActive"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	if req.Name != nil {
		site.Name = *req.Name
	}
	if req.Color != nil {
		site.Color = *req.Color
	}
	if req.IsActive != nil {
		site.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateSite(r.Context(), site); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "sites_name_key":
			h.badRequest(w, r, errors.New("站点名称已存在"))
		default:
			h.engineError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "站点更新成功", site)
}

// DeleteSite 同时删除该站点的所有班次
func (h *Handler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	site := r.Context().Value(SiteCtx).(*domain.Site)

	if err := h.repository.DeleteSite(r.Context(), site.ID); err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "站点删除成功", nil)
}

func (h *Handler) GetAllAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.repository.GetAllAgencies(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取派遣机构列表成功", agencies)
}

func (h *Handler) CreateAgency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name" validate:"required,max=128"`
		ContactEmail string `json:"contactEmail" validate:"omitempty,email"`
	}
	if !h.readRequest(w, r, &req) {
		return
	}

	agency := &domain.Agency{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	}
	if err := h.repository.CreateAgency(r.Context(), agency); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "agencies_name_key":
			h.badRequest(w, r, errors.New("派遣机构名称已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "派遣机构创建成功", agency)
}
