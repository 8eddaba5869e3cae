package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reposcope/reposcope/internal/ingestion"
	"github.com/reposcope/reposcope/internal/store"
	"github.com/reposcope/reposcope/pkg/apierr"
)

type RunHandler struct {
	logger   *slog.Logger
	store    *store.Store
	producer *ingestion.Producer
}

func NewRunHandler(logger *slog.Logger, s *store.Store, producer *ingestion.Producer) *RunHandler {
	return &RunHandler{logger: logger, store: s, producer: producer}
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	runs, err := h.store.ListIngestRuns(r.Context(), limit, offset)
	if err != nil {
		writeAPIError(w, h.logger, apierr.RunListFailed(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeAPIError(w, h.logger, apierr.InvalidRunID())
		return
	}

	run, err := h.store.GetIngestRun(r.Context(), runID)
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, h.logger, apierr.RunNotFound())
		} else {
			writeAPIError(w, h.logger, apierr.InternalError(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// Trigger creates a pending run row and enqueues the job. The worker flips
// the row to running when it picks the message up.
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")
	if owner == "" || name == "" {
		writeAPIError(w, h.logger, apierr.InvalidRepo())
		return
	}

	run, err := h.store.CreateIngestRun(r.Context(), owner+"/"+name, "manual")
	if err != nil {
		writeAPIError(w, h.logger, apierr.RunCreateFailed(err))
		return
	}

	if _, err := h.producer.Enqueue(r.Context(), ingestion.IngestMessage{
		RunID:   run.ID,
		Owner:   owner,
		Name:    name,
		Trigger: "manual",
	}); err != nil {
		writeAPIError(w, h.logger, apierr.EnqueueFailed(err))
		return
	}

	h.logger.Info("ingest run queued",
		slog.String("run_id", run.ID.String()),
		slog.String("repo", owner+"/"+name))
	writeJSON(w, http.StatusAccepted, run)
}
