package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/playback"
	"github.com/mmcdole/anikino/internal/search"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // HTTP response write errors are not recoverable
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: message})
}

// decode reads an optional JSON body; an empty body leaves dst untouched
func decode(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func animeIDParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "animeID"))
}

// episodeIDParam unescapes the id; provider ids carry "?ep=" and arrive encoded
func episodeIDParam(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "episodeID"))
}

// Play handles POST /anime/{animeID}/play
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	animeID, err := animeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid anime id")
		return
	}

	var body playRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	req := playback.Request{AnimeID: animeID, EpisodeID: body.EpisodeID, ForceRefresh: body.ForceRefresh}
	if body.Server != "" || body.Category != "" {
		// A category alone only reorders categories
		var category domain.Category
		if body.Category != "" {
			if category, err = domain.ParseCategory(body.Category); err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", err.Error())
				return
			}
		}
		req.Preferred = &domain.EpisodeSourceQuery{EpisodeID: body.EpisodeID, Server: body.Server, Category: category}
	}

	ready, err := h.coordinator.Resolve(r.Context(), req)
	if err != nil {
		writePlaybackError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReadyResponse(ready))
}

// ListEpisodes handles GET /anime/{animeID}/episodes?q=&refresh=
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	animeID, err := animeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid anime id")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	anime, warnings, err := h.coordinator.Episodes(r.Context(), animeID, force)
	if err != nil {
		writePlaybackError(w, err)
		return
	}

	episodes := anime.Episodes
	if q := r.URL.Query().Get("q"); q != "" {
		episodes = lo.Map(search.FilterEpisodes(anime.Episodes, q), func(res search.Result, _ int) domain.EpisodeRef {
			return res.Episode
		})
	}
	writeJSON(w, http.StatusOK, newEpisodeListResponse(*anime, episodes, warnings))
}

func writePlaybackError(w http.ResponseWriter, err error) {
	var pe *playback.Error
	if errors.As(err, &pe) {
		writeError(w, statusForKind(pe.Kind), pe.Kind.String(), pe.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

func statusForKind(kind playback.ErrorKind) int {
	switch kind {
	case playback.KindNoEpisodesAvailable, playback.KindNoServersAvailable:
		return http.StatusNotFound
	case playback.KindMetadataFetchFailed, playback.KindNoPlayableSourceFound:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// SetAnimeFavorite handles PUT /anime/{animeID}/favorite
func (h *Handler) SetAnimeFavorite(w http.ResponseWriter, r *http.Request) {
	animeID, err := animeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid anime id")
		return
	}
	var body favoriteRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	c, err := h.complements.SetAnimeFavorite(animeID, body.Favorite)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnimeResponse(*c))
}

// GetEpisode handles GET /episodes/{episodeID}
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID, err := episodeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid episode id")
		return
	}
	c, ok := h.complements.GetEpisodeComplement(episodeID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", domain.ErrEpisodeNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, newEpisodeResponse(*c))
}

// DeleteEpisode handles DELETE /episodes/{episodeID}
func (h *Handler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID, err := episodeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid episode id")
		return
	}
	existed, err := h.complements.DeleteEpisodeComplement(episodeID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "not_found", domain.ErrEpisodeNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetEpisodeFavorite handles PUT /episodes/{episodeID}/favorite
func (h *Handler) SetEpisodeFavorite(w http.ResponseWriter, r *http.Request) {
	episodeID, err := episodeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid episode id")
		return
	}
	var body favoriteRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	c, err := h.complements.SetEpisodeFavorite(episodeID, body.Favorite)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEpisodeResponse(*c))
}

// UpdateProgress handles PUT /episodes/{episodeID}/progress
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	episodeID, err := episodeIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid episode id")
		return
	}
	var body progressRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if body.Position < 0 || body.Duration < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "position and duration must not be negative")
		return
	}

	c, err := h.complements.UpdateWatchProgress(episodeID, body.Position, body.Duration, body.Screenshot)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEpisodeResponse(*c))
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAnimeNotFound), errors.Is(err, domain.ErrEpisodeNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error("store operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "store operation failed")
	}
}
