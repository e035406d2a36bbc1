package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"aicore/internal/analytics"
	"aicore/internal/utils"
)

const dateLayout = "2006-01-02"

func (d *Dependencies) handleCurrentUsage(w http.ResponseWriter, r *http.Request) {
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := d.Analytics.CurrentUsage(r.Context(), period)
	if err != nil {
		d.analyticsError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, summary)
}

func (d *Dependencies) handleTopModels(w http.ResponseWriter, r *http.Request) {
	limit, since, err := topParams(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := d.Analytics.TopModels(r.Context(), limit, since)
	if err != nil {
		d.analyticsError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

func (d *Dependencies) handleTopProviders(w http.ResponseWriter, r *http.Request) {
	limit, since, err := topParams(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := d.Analytics.TopProviders(r.Context(), limit, since)
	if err != nil {
		d.analyticsError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

func (d *Dependencies) handleCostTrend(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", 30)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	trend, err := d.Analytics.CostTrend(r.Context(), days)
	if err != nil {
		d.analyticsError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, trend)
}

func (d *Dependencies) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse(dateLayout, q.Get("from"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "from must be a YYYY-MM-DD date")
		return
	}
	to, err := time.Parse(dateLayout, q.Get("to"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "to must be a YYYY-MM-DD date")
		return
	}

	// to is inclusive on the wire
	report, err := d.Analytics.Report(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		d.analyticsError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}

func (d *Dependencies) handleQuota(w http.ResponseWriter, r *http.Request) {
	status, err := d.Analytics.CheckQuotas(r.Context())
	if err != nil {
		d.analyticsError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"exceeded": status.Exceeded(),
		"status":   status,
	})
}

func (d *Dependencies) analyticsError(w http.ResponseWriter, err error) {
	if errors.Is(err, analytics.ErrInvalidRange) || errors.Is(err, analytics.ErrUnknownPeriod) {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	d.Logger.Error("Usage analytics failed", "error", err.Error())
	utils.RespondWithError(w, http.StatusInternalServerError, "failed to compute usage analytics")
}

// topParams reads limit and a since window given in days (default 30)
func topParams(r *http.Request) (int, time.Time, error) {
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		return 0, time.Time{}, err
	}
	days, err := intParam(r, "days", 30)
	if err != nil {
		return 0, time.Time{}, err
	}
	return limit, time.Now().UTC().AddDate(0, 0, -days), nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}
