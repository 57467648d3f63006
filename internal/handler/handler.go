package handler

import (
	"errors"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/venueops-dev/shift-sync/backend/internal/audit"
	"github.com/venueops-dev/shift-sync/backend/internal/config"
	"github.com/venueops-dev/shift-sync/backend/internal/idempotency"
	"github.com/venueops-dev/shift-sync/backend/internal/notifier"
	"github.com/venueops-dev/shift-sync/backend/internal/registry"
	"github.com/venueops-dev/shift-sync/backend/internal/roster"
	"github.com/venueops-dev/shift-sync/backend/internal/updater"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	translator  ut.Translator
	roster      roster.Client
	registry    registry.Client
	updater     *updater.Updater
	idempotency idempotency.Store
	auditStore  audit.Store
	recorder    *audit.Recorder
	notifier    *notifier.Notifier
	location    *time.Location

	readiness readinessCache

	Mux *chi.Mux
}

func NewHandler(
	cfg *config.Config,
	rosterClient roster.Client,
	registryClient registry.Client,
	upd *updater.Updater,
	idemStore idempotency.Store,
	auditStore audit.Store,
	recorder *audit.Recorder,
	alertNotifier *notifier.Notifier,
	loc *time.Location,
) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		translator:  trans,
		roster:      rosterClient,
		registry:    registryClient,
		updater:     upd,
		idempotency: idemStore,
		auditStore:  auditStore,
		recorder:    recorder,
		notifier:    alertNotifier,
		location:    loc,

		Mux: chi.NewRouter(),
	}, nil
}

// translateValidationError 把校验错误翻译成逐字段的中文说明
func (h *Handler) translateValidationError(err error) any {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve.Translate(h.translator)
	}
	return err.Error()
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(h.cors)

	h.Mux.Get("/healthz", h.Healthz)
	h.Mux.Get("/readyz", h.Readyz)

	h.Mux.Route("/api", func(r chi.Router) {
		r.Get("/schedule", h.GetSchedule)
		r.Put("/shifts/{occurrenceID}", h.UpdateSingleShift)
		r.Post("/shifts/bulk", h.UpdateBulkShifts)
		r.Get("/audit-log", h.GetAuditLog)
	})
}
