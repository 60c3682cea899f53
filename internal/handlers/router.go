package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sitemat/sitematgo/internal/database"
	"github.com/sitemat/sitematgo/internal/engine"
)

// Router wraps the mux router, the database and the alerting engine
type Router struct {
	*mux.Router
	db     *database.DB
	engine *engine.Engine
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, eng *engine.Engine) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		db:     db,
		engine: eng,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Projects
	api.HandleFunc("/projects", r.listProjects).Methods("GET")
	api.HandleFunc("/projects", r.createProject).Methods("POST")
	api.HandleFunc("/projects/{id}", r.getProject).Methods("GET")
	api.HandleFunc("/projects/{id}", r.updateProject).Methods("PUT")
	api.HandleFunc("/projects/{id}", r.deleteProject).Methods("DELETE")
	api.HandleFunc("/projects/{id}/activities", r.listActivities).Methods("GET")
	api.HandleFunc("/projects/{id}/pending-consumption", r.pendingConsumption).Methods("GET")
	api.HandleFunc("/projects/{id}/blocked-activities", r.blockedActivities).Methods("GET")
	api.HandleFunc("/projects/{id}/simulate", r.simulateProject).Methods("POST")

	// Activities, material links, dependencies, progress
	api.HandleFunc("/activities", r.createActivity).Methods("POST")
	api.HandleFunc("/activities/{id}", r.updateActivity).Methods("PUT")
	api.HandleFunc("/activities/{id}", r.deleteActivity).Methods("DELETE")
	api.HandleFunc("/activities/{id}/materials", r.listActivityMaterials).Methods("GET")
	api.HandleFunc("/activities/{id}/materials", r.addActivityMaterial).Methods("POST")
	api.HandleFunc("/activities/{id}/dependencies", r.addDependency).Methods("POST")
	api.HandleFunc("/activities/{id}/progress", r.confirmProgress).Methods("POST")
	api.HandleFunc("/activity-materials/{id}", r.updateActivityMaterial).Methods("PUT")
	api.HandleFunc("/activity-materials/{id}", r.removeActivityMaterial).Methods("DELETE")

	// Materials, batches, movements
	api.HandleFunc("/materials", r.listMaterials).Methods("GET")
	api.HandleFunc("/materials", r.createMaterial).Methods("POST")
	api.HandleFunc("/materials/{id}", r.getMaterial).Methods("GET")
	api.HandleFunc("/materials/{id}", r.updateMaterial).Methods("PUT")
	api.HandleFunc("/materials/{id}/batches", r.listBatches).Methods("GET")
	api.HandleFunc("/materials/{id}/movements", r.listMovements).Methods("GET")
	api.HandleFunc("/movements", r.createMovement).Methods("POST")

	// Suppliers
	api.HandleFunc("/suppliers", r.listSuppliers).Methods("GET")
	api.HandleFunc("/suppliers", r.createSupplier).Methods("POST")
	api.HandleFunc("/suppliers/{id}", r.getSupplier).Methods("GET")
	api.HandleFunc("/suppliers/{id}", r.updateSupplier).Methods("PUT")
	api.HandleFunc("/suppliers/{id}", r.deleteSupplier).Methods("DELETE")

	// Purchase orders
	api.HandleFunc("/orders", r.listOrders).Methods("GET")
	api.HandleFunc("/orders", r.createOrder).Methods("POST")
	api.HandleFunc("/orders/{id}", r.getOrder).Methods("GET")
	api.HandleFunc("/orders/{id}", r.updateOrder).Methods("PUT")
	api.HandleFunc("/orders/{id}", r.deleteOrder).Methods("DELETE")
	api.HandleFunc("/orders/{id}/lines", r.listOrderLines).Methods("GET")
	api.HandleFunc("/orders/{id}/lines", r.addOrderLine).Methods("POST")
	api.HandleFunc("/orders/{id}/confirm", r.confirmOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/receive", r.receiveOrder).Methods("POST")

	// Alerts
	api.HandleFunc("/alerts", r.listAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id}/acknowledge", r.acknowledgeAlert).Methods("POST")
	api.HandleFunc("/alerts/{id}/dismiss", r.dismissAlert).Methods("POST")
	api.HandleFunc("/alerts/generate/{projectId}", r.generateProjectAlerts).Methods("POST")
	api.HandleFunc("/alerts/generate-global", r.generateGlobalAlerts).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondEngineError maps the engine error taxonomy onto HTTP statuses
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case engine.IsValidation(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
