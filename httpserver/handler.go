package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/reseat-project/reseat/identity"
	"github.com/reseat-project/reseat/interfaces"
	"github.com/reseat-project/reseat/metrics"
	"github.com/reseat-project/reseat/pipeline"
)

// Provisioner is the pipeline surface the handler triggers. Satisfied by
// pipeline.Runner.
type Provisioner interface {
	Provision(ctx context.Context) (*pipeline.Result, error)
	ResetIdentity() (identity.DeviceIdentitySet, error)
}

// Run states reported by the status endpoint.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// RunStatus is the status endpoint's view of the most recent run.
type RunStatus struct {
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	Email string `json:"email,omitempty"`
	Token string `json:"token,omitempty"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler processes HTTP requests for the provisioning service. Runs are
// single-flight: a provision request while one is in progress is
// rejected rather than queued, because concurrent runs would race on the
// shared mailbox and identity document.
type Handler struct {
	runner Provisioner
	log    *slog.Logger

	// RunTimeout bounds one provisioning run. Default 15m.
	RunTimeout time.Duration

	mu      sync.Mutex
	running bool
	status  RunStatus
}

// NewHandler creates a handler over the given pipeline.
func NewHandler(runner Provisioner, log *slog.Logger) *Handler {
	return &Handler{
		runner:     runner,
		log:        log,
		RunTimeout: 15 * time.Minute,
		status:     RunStatus{State: StateIdle},
	}
}

// HandleProvision starts a provisioning run in the background and
// returns 202. Returns 409 if a run is already in progress.
func (h *Handler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a provisioning run is already in progress"})
		return
	}
	h.running = true
	h.status = RunStatus{State: StateRunning, StartedAt: time.Now().UTC()}
	h.mu.Unlock()

	metrics.ProvisionRunsStarted.Inc()

	// The run outlives the request; it is bounded by RunTimeout, not by
	// the request context.
	go h.runProvision()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) runProvision() {
	ctx, cancel := context.WithTimeout(context.Background(), h.RunTimeout)
	defer cancel()

	res, err := h.runner.Provision(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	h.status.FinishedAt = time.Now().UTC()
	if res != nil {
		h.status.Email = res.Email
		h.status.Stage = string(res.Stage)
	}
	if err != nil {
		metrics.ProvisionRunsFailed.Inc()
		h.status.State = StateFailed
		h.status.Stage = string(interfaces.StageOf(err))
		h.status.Error = err.Error()
		h.log.Error("Provisioning run failed",
			slog.String("stage", h.status.Stage), "err", err)
		return
	}
	metrics.ProvisionRunsSucceeded.Inc()
	h.status.State = StateSucceeded
	h.status.Token = res.Token
	h.log.Info("Provisioning run succeeded", slog.String("email", res.Email))
}

// HandleStatus reports the state of the most recent run.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	status := h.status
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, status)
}

// HandleResetIdentity rewrites the device identity document and returns
// the fresh values. Synchronous; the reset is fast and local.
func (h *Handler) HandleResetIdentity(w http.ResponseWriter, r *http.Request) {
	set, err := h.runner.ResetIdentity()
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, interfaces.ErrIdentityDocMissing):
			status = http.StatusNotFound
		case errors.Is(err, interfaces.ErrIdentityDocPermission):
			status = http.StatusConflict
		}
		h.log.Error("Identity reset failed", "err", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	metrics.IdentityResets.Inc()
	writeJSON(w, http.StatusOK, set.Map())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
