package handlers

import (
	"errors"
	"net/http"

	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// listAlerts returns pending alerts ordered by severity then recency.
// Optional filters: ?project_id=N, ?status=acknowledged, ?type=stock_minimum.
func (r *Router) listAlerts(w http.ResponseWriter, req *http.Request) {
	q := r.db.Order(`CASE severity
		WHEN 'critical' THEN 0
		WHEN 'high' THEN 1
		WHEN 'medium' THEN 2
		ELSE 3 END, created_at DESC`)

	status := req.URL.Query().Get("status")
	if status == "" {
		status = models.AlertPending
	}
	q = q.Where("status = ?", status)

	if projectID := req.URL.Query().Get("project_id"); projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	if alertType := req.URL.Query().Get("type"); alertType != "" {
		q = q.Where("type = ?", alertType)
	}

	var alerts []models.Alert
	if err := q.Find(&alerts).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch alerts")
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// acknowledgeAlert marks a pending alert as acknowledged
func (r *Router) acknowledgeAlert(w http.ResponseWriter, req *http.Request) {
	r.setAlertStatus(w, req, models.AlertAcknowledged)
}

// dismissAlert marks a pending alert as dismissed
func (r *Router) dismissAlert(w http.ResponseWriter, req *http.Request) {
	r.setAlertStatus(w, req, models.AlertDismissed)
}

func (r *Router) setAlertStatus(w http.ResponseWriter, req *http.Request, status string) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	var alert models.Alert
	if err := r.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Alert not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch alert")
		return
	}
	if alert.Status != models.AlertPending {
		respondError(w, http.StatusUnprocessableEntity, "Alert is no longer pending")
		return
	}

	updates := map[string]interface{}{"status": status}
	if status == models.AlertAcknowledged {
		updates["acknowledged_at"] = r.engine.Now()
	}
	if err := r.db.Model(&alert).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update alert")
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

// generateProjectAlerts regenerates the project-scoped alert set
func (r *Router) generateProjectAlerts(w http.ResponseWriter, req *http.Request) {
	projectID, err := pathID(req, "projectId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	if err := r.engine.RegenerateProjectAlerts(projectID); err != nil {
		respondEngineError(w, err)
		return
	}

	var count int64
	r.db.Model(&models.Alert{}).
		Where("project_id = ? AND status = ?", projectID, models.AlertPending).
		Count(&count)
	respondJSON(w, http.StatusOK, map[string]int64{"pending_alerts": count})
}

// generateGlobalAlerts regenerates the stagnation, expiry and price alerts
func (r *Router) generateGlobalAlerts(w http.ResponseWriter, req *http.Request) {
	created, err := r.engine.RegenerateGlobalAlerts()
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"created": created})
}
