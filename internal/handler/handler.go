package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/leave"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/payroll"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/roster"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	roster     *roster.Manager
	leave      *leave.Service
	payroll    *payroll.Calculator

	Mux *chi.Mux
}

func NewHandler(
	cfg *config.Config,
	repo *repository.Repository,
	rosterManager *roster.Manager,
	leaveService *leave.Service,
	calculator *payroll.Calculator,
) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		roster:     rosterManager,
		leave:      leaveService,
		payroll:    calculator,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", h.GetAllSites)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdministrator})).Post("/", h.CreateSite)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.siteInfo)
				r.Get("/", h.GetSite)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdministrator})).Patch("/", h.UpdateSite)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdministrator})).Delete("/", h.DeleteSite)
			})
		})

		r.Route("/agencies", func(r chi.Router) {
			r.Get("/", h.GetAllAgencies)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdministrator})).Post("/", h.CreateAgency)
		})

		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.GetAllWorkers)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdministrator})).Post("/", h.CreateWorker)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.workerInfo)
				r.Get("/", h.GetWorker)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdministrator})).Patch("/", h.UpdateWorker)
				r.Get("/leave-balance", h.GetLeaveBalance)
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShifts)
			r.Post("/validate", h.ValidateShifts)
			r.Route("/batches/{batchID}", func(r chi.Router) {
				r.Post("/approve", h.ApproveBatch)
				r.Post("/discard", h.DiscardBatch)
			})
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetShift)
				r.Patch("/", h.EditShift)
				r.Post("/remove", h.RemoveShift)
				r.Post("/split", h.SplitShift)
				r.Post("/extend", h.ExtendShift)
				r.Post("/punch", h.PunchShift)
				r.Post("/convert-24h", h.ConvertShiftTo24h)
				r.Patch("/status", h.UpdateShiftStatus)
			})
		})

		r.Route("/leave-requests", func(r chi.Router) {
			r.Get("/", h.ListLeaveRequests)
			r.Post("/", h.SubmitLeaveRequest)
			r.Post("/{id}/review", h.ReviewLeaveRequest)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleAdministrator}))
			r.Get("/", h.GetPayRun)
			r.Get("/export", h.ExportPayRun)
			r.Get("/workers/{id}", h.GetWorkerPay)
		})
	})
}
