package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"aicore/internal/utils"
)

func (d *Dependencies) handleModuleConfiguration(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")

	cfg, err := d.Modules.GetModuleConfiguration(r.Context(), module)
	if err != nil {
		d.Logger.Error("Failed to load module configuration", "module", module, "error", err.Error())
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load module configuration")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cfg)
}
