package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	"github.com/mohamedirsath07/ExpireGuard/internal/install"
	"github.com/mohamedirsath07/ExpireGuard/internal/inventory"
	"github.com/mohamedirsath07/ExpireGuard/internal/middleware"
	"github.com/mohamedirsath07/ExpireGuard/internal/ocr"
)

// API is the HTTP surface the UI talks to.
type API struct {
	agent     *Agent
	provider  inventory.Provider
	scanner   *ocr.Client
	threshold float64
	logger    *slog.Logger
}

// NewAPI creates the agent's REST handler. scanner may be nil when the scan
// flow is disabled; threshold is the OCR confidence below which a result is
// flagged for manual verification.
func NewAPI(agent *Agent, provider inventory.Provider, scanner *ocr.Client, threshold float64, logger *slog.Logger) *API {
	return &API{
		agent:     agent,
		provider:  provider,
		scanner:   scanner,
		threshold: threshold,
		logger:    logger,
	}
}

// Router builds the chi router with all agent routes mounted.
func (h *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(middleware.MaxBodySize(10 << 20)) // room for label photos

	r.Get("/healthz", h.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/notifications", h.GetNotifications)
		r.Post("/notifications/evaluate", h.Evaluate)

		r.Get("/update", h.GetUpdateStatus)
		r.Post("/update/activate", h.ActivateUpdate)
		r.Post("/update/dismiss", h.DismissUpdate)

		r.Get("/install", h.GetInstallStatus)
		r.Post("/install/prompt", h.PromptInstall)
		r.Post("/install/dismiss", h.DismissInstall)

		r.Get("/items", h.ListItems)
		r.Post("/items", h.CreateItem)
		r.Delete("/items/{id}", h.DeleteItem)

		r.Post("/scan", h.Scan)
	})
	return r
}

// NotificationsResponse is the GET /notifications body.
type NotificationsResponse struct {
	Records     []domain.NotificationRecord `json:"records"`
	EvaluatedAt *time.Time                  `json:"evaluated_at,omitempty"`
}

// GetNotifications handles GET /api/v1/notifications.
func (h *API) GetNotifications(w http.ResponseWriter, r *http.Request) {
	records, at := h.agent.Records()
	resp := NotificationsResponse{Records: records}
	if !at.IsZero() {
		resp.EvaluatedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// Evaluate handles POST /api/v1/notifications/evaluate. ?force=true
// bypasses the dispatch rate limit.
func (h *API) Evaluate(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	records, err := h.agent.Evaluate(r.Context(), force)
	if err != nil {
		h.logger.Error("evaluation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "inventory unavailable")
		return
	}
	_, at := h.agent.Records()
	writeJSON(w, http.StatusOK, NotificationsResponse{Records: records, EvaluatedAt: &at})
}

// UpdateStatusResponse is the GET /update body.
type UpdateStatusResponse struct {
	UpdateAvailable bool `json:"update_available"`
	WaitingVersion  int  `json:"waiting_version,omitempty"`
}

// GetUpdateStatus handles GET /api/v1/update.
func (h *API) GetUpdateStatus(w http.ResponseWriter, r *http.Request) {
	resp := UpdateStatusResponse{UpdateAvailable: h.agent.Notifier().HasUpdate()}
	if v, ok := h.agent.Notifier().WaitingVersion(); ok {
		resp.WaitingVersion = v
	}
	writeJSON(w, http.StatusOK, resp)
}

// ActivateUpdate handles POST /api/v1/update/activate.
func (h *API) ActivateUpdate(w http.ResponseWriter, r *http.Request) {
	if err := h.agent.Notifier().Activate(r.Context()); err != nil {
		var noWaiting *domain.NoWaitingGenerationError
		if errors.As(err, &noWaiting) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("activation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "activation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "activating"})
}

// DismissUpdate handles POST /api/v1/update/dismiss.
func (h *API) DismissUpdate(w http.ResponseWriter, r *http.Request) {
	h.agent.Notifier().Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// InstallStatusResponse is the GET /install body.
type InstallStatusResponse struct {
	State      install.State `json:"state"`
	CanInstall bool          `json:"can_install"`
	Installed  bool          `json:"installed"`
}

// GetInstallStatus handles GET /api/v1/install.
func (h *API) GetInstallStatus(w http.ResponseWriter, r *http.Request) {
	inst := h.agent.Installer()
	writeJSON(w, http.StatusOK, InstallStatusResponse{
		State:      inst.State(),
		CanInstall: inst.CanInstall(),
		Installed:  inst.IsInstalled(),
	})
}

// PromptInstall handles POST /api/v1/install/prompt.
func (h *API) PromptInstall(w http.ResponseWriter, r *http.Request) {
	inst := h.agent.Installer()
	if !inst.CanInstall() {
		writeError(w, http.StatusConflict, "no install prompt available")
		return
	}
	accepted, err := inst.Install(r.Context())
	if err != nil {
		h.logger.Error("install prompt failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "install prompt failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// DismissInstall handles POST /api/v1/install/dismiss.
func (h *API) DismissInstall(w http.ResponseWriter, r *http.Request) {
	h.agent.Installer().Dismiss(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ListItems handles GET /api/v1/items.
func (h *API) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.provider.List(r.Context())
	if err != nil {
		h.logger.Error("list items failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "inventory unavailable")
		return
	}
	if items == nil {
		items = []domain.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateItem handles POST /api/v1/items.
func (h *API) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item domain.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if item.Name == "" {
		writeError(w, http.StatusBadRequest, "field 'name' is required")
		return
	}
	if item.Category != "" && !item.Category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	created, err := h.provider.Create(r.Context(), item)
	if err != nil {
		h.logger.Error("create item failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "inventory unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DeleteItem handles DELETE /api/v1/items/{id}.
func (h *API) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.provider.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("delete item failed", slog.String("id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "inventory unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, (&domain.ItemNotFoundError{ID: id}).Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScanResponse is the POST /scan body.
type ScanResponse struct {
	Success           bool        `json:"success"`
	ExpiryDate        domain.Date `json:"expiryDate"`
	Confidence        float64     `json:"confidence"`
	NeedsVerification bool        `json:"needs_verification"`
	Message           string      `json:"message,omitempty"`
}

// Scan handles POST /api/v1/scan: a multipart label photo goes to the OCR
// service; low-confidence results come back flagged for manual verification.
func (h *API) Scan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusNotImplemented, "scan is not configured")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	result, err := h.scanner.Extract(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("scan failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "ocr service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Success:           result.Success,
		ExpiryDate:        result.ExpiryDate,
		Confidence:        result.Confidence,
		NeedsVerification: result.Success && result.Confidence < h.threshold,
		Message:           result.Message,
	})
}

// Healthz handles GET /healthz.
func (h *API) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
