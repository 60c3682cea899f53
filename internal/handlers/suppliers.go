package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// listSuppliers returns all suppliers ordered by name
func (r *Router) listSuppliers(w http.ResponseWriter, req *http.Request) {
	var suppliers []models.Supplier
	if err := r.db.Order("name ASC").Find(&suppliers).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch suppliers")
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

// createSupplier creates a new supplier
func (r *Router) createSupplier(w http.ResponseWriter, req *http.Request) {
	var supplier models.Supplier
	if err := json.NewDecoder(req.Body).Decode(&supplier); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if supplier.Name == "" {
		respondError(w, http.StatusBadRequest, "Supplier name is required")
		return
	}
	if supplier.LeadTimeDays <= 0 {
		supplier.LeadTimeDays = 7
	}

	if err := r.db.Create(&supplier).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create supplier")
		return
	}
	respondJSON(w, http.StatusCreated, supplier)
}

// getSupplier returns a single supplier
func (r *Router) getSupplier(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid supplier ID")
		return
	}

	var supplier models.Supplier
	if err := r.db.First(&supplier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Supplier not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch supplier")
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

// updateSupplier updates supplier fields
func (r *Router) updateSupplier(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid supplier ID")
		return
	}

	var supplier models.Supplier
	if err := r.db.First(&supplier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Supplier not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch supplier")
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	delete(updates, "id")

	if err := r.db.Model(&supplier).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update supplier")
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

// deleteSupplier removes a supplier unless materials still reference it
func (r *Router) deleteSupplier(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid supplier ID")
		return
	}

	var count int64
	if err := r.db.Model(&models.Material{}).Where("supplier_id = ?", id).
		Count(&count).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check supplier usage")
		return
	}
	if count > 0 {
		respondError(w, http.StatusConflict, "Supplier still has materials assigned")
		return
	}

	if err := r.db.Delete(&models.Supplier{}, id).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete supplier")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
