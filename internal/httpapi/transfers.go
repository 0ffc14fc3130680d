package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"kardex/backend/internal/domain"
	"kardex/backend/internal/service"
)

func (a *API) handleBranches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.service.ListBranches())
}

func (a *API) handleResolveDestination(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	reference := r.URL.Query().Get("reference")
	if strings.TrimSpace(reference) == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("reference is required"))
		return
	}
	writeJSON(w, http.StatusOK, a.service.ResolveDestination(reference))
}

func (a *API) handleReportingPeriod(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		period, err := a.service.GetReportingPeriod(r.Context())
		if err != nil {
			a.writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, period)
	case http.MethodPut:
		var req domain.ReportingPeriodRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		period, err := a.service.SetReportingPeriod(r.Context(), req)
		if err != nil {
			a.writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, period)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	origin := strings.TrimSpace(query.Get("origin"))
	if origin == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("origin is required"))
		return
	}
	rng, err := service.ParseDateRange(query.Get("from"), query.Get("to"))
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}

	report, err := a.service.ReconcileTransfers(r.Context(), origin, rng)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	rng, err := service.ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}

	summary, err := a.service.TransferSummary(r.Context(), rng)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleReportExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	runID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/v1/transfers/reports/"))
	if runID == "" || strings.Contains(runID, "/") {
		a.writeError(w, http.StatusNotFound, errors.New("report not found"))
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	report, err := a.service.GetReport(r.Context(), runID)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}

	filename := fmt.Sprintf("transfers-%s-%s", report.Origin, report.Range.From.Format("20060102"))
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, report)
	case "csv":
		body, err := transferReportToCSV(*report)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
		_, _ = w.Write(body)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(transferReportToPrintableHTML(*report)))
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
		if err := writeTransferReportXLSX(w, *report); err != nil {
			a.log.WithError(err).WithField("run_id", runID).Error("xlsx export failed")
		}
	default:
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListUsers(r.Context())})
	case http.MethodPost:
		var req domain.UserCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.auth.CreateUser(r.Context(), req)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		a.writeMethodNotAllowed(w)
	}
}
