package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reposcope/reposcope/internal/store"
	"github.com/reposcope/reposcope/pkg/apierr"
)

type RepoHandler struct {
	logger *slog.Logger
	store  *store.Store
}

func NewRepoHandler(logger *slog.Logger, s *store.Store) *RepoHandler {
	return &RepoHandler{logger: logger, store: s}
}

func (h *RepoHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	repos, err := h.store.ListRepositories(r.Context(), limit, offset)
	if err != nil {
		writeAPIError(w, h.logger, apierr.RepoListFailed(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"repositories": repos,
		"total":        len(repos),
	})
}

func (h *RepoHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")
	if owner == "" || name == "" {
		writeAPIError(w, h.logger, apierr.InvalidRepo())
		return
	}

	repo, err := h.store.GetRepositoryByFullName(r.Context(), owner+"/"+name)
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, h.logger, apierr.RepoNotFound())
		} else {
			writeAPIError(w, h.logger, apierr.InternalError(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, repo)
}

func pageParams(r *http.Request) (limit, offset int32) {
	l, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	o, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if l <= 0 || l > 100 {
		l = 20
	}
	if o < 0 {
		o = 0
	}
	return int32(l), int32(o)
}
