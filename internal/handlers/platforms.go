package handlers

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/PortNumber53/brandhub/internal/platforms"
)

// ListPlatforms serves the constraint table.
// URL: GET /api/platforms
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"platforms": h.agg.Table().Rows()})
}

// PlatformLimits serves the binding limits of a selection.
// URL: GET /api/platforms/limits?platforms=twitter,linkedin
func (h *Handler) PlatformLimits(w http.ResponseWriter, r *http.Request) {
	ps, err := platforms.ParseList(splitList(queryParam(r, "platforms")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.agg.Limits(ps))
}

type validateResponse struct {
	OK         bool                  `json:"ok"`
	Limits     platforms.Limits      `json:"limits"`
	Violations []platforms.Violation `json:"violations"`
}

// ValidateDraft checks a composed draft against every selected platform.
// URL: POST /api/platforms/validate
func (h *Handler) ValidateDraft(w http.ResponseWriter, r *http.Request) {
	var d platforms.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d.Platforms = lo.Uniq(d.Platforms)
	v := h.agg.Validate(d)
	if v == nil {
		v = []platforms.Violation{}
	}
	writeJSON(w, http.StatusOK, validateResponse{OK: len(v) == 0, Limits: h.agg.Limits(d.Platforms), Violations: v})
}
