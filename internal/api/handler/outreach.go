package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ess007/beathealth-outreach/internal/api/respond"
)

// runRequest is the trigger body: batch mode covers the whole active
// population, single mode requires a user id.
type runRequest struct {
	Mode   string `json:"mode"`
	UserID string `json:"userId"`
}

// RunOutreach triggers a decision run.
// @Summary Trigger an outreach run
// @Description Runs the decision pipeline for one user or the whole active population. Requires a service credential.
// @Tags outreach
// @Accept json
// @Produce json
// @Param request body runRequest true "run mode"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /outreach/run [post]
func (h *Handler) RunOutreach(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		return
	}

	switch req.Mode {
	case "batch":
		result := h.runner.RunBatch(r.Context())
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"mode":   "batch",
			"result": result,
		})

	case "single":
		if req.UserID == "" {
			respond.WriteError(w, http.StatusBadRequest, "MISSING_USER", "single mode requires userId")
			return
		}
		result, err := h.runner.RunSingle(r.Context(), req.UserID)
		if err != nil {
			respond.WriteError(w, http.StatusBadGateway, "RUN_FAILED", "Outreach run failed for user")
			return
		}
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"mode":   "single",
			"result": result,
		})

	default:
		respond.WriteError(w, http.StatusBadRequest, "INVALID_MODE", `mode must be "single" or "batch"`)
	}
}

// PreviewOutreach evaluates the rule ladder without side effects.
// @Summary Preview the outreach decision for a user
// @Description Loads context and returns the decision without writing or sending anything.
// @Tags outreach
// @Produce json
// @Param userID path string true "user id"
// @Success 200 {object} map[string]interface{}
// @Failure 502 {object} respond.ErrorResponse
// @Router /outreach/preview/{userID} [get]
func (h *Handler) PreviewOutreach(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER", "user id required")
		return
	}

	decision, err := h.runner.Preview(r.Context(), userID)
	if err != nil {
		respond.WriteError(w, http.StatusBadGateway, "PREVIEW_FAILED", "Context load failed for user")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"decision": decision,
	})
}
