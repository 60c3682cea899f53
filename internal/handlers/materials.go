package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sitemat/sitematgo/internal/engine"
	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// listMaterials returns all materials ordered by name
func (r *Router) listMaterials(w http.ResponseWriter, req *http.Request) {
	var materials []models.Material
	if err := r.db.Order("name ASC").Find(&materials).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch materials")
		return
	}
	respondJSON(w, http.StatusOK, materials)
}

// createMaterial creates a new material
func (r *Router) createMaterial(w http.ResponseWriter, req *http.Request) {
	var material models.Material
	if err := json.NewDecoder(req.Body).Decode(&material); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if material.Name == "" {
		respondError(w, http.StatusBadRequest, "Material name is required")
		return
	}
	if material.CurrentStock < 0 || material.MinStock < 0 {
		respondError(w, http.StatusBadRequest, "Stock levels cannot be negative")
		return
	}
	if material.ExpiryWarningDays == 0 {
		material.ExpiryWarningDays = 15
	}

	if err := r.db.Create(&material).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create material")
		return
	}
	respondJSON(w, http.StatusCreated, material)
}

// getMaterial returns a single material with its supplier
func (r *Router) getMaterial(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid material ID")
		return
	}

	var material models.Material
	if err := r.db.Preload("Supplier").First(&material, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Material not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch material")
		return
	}
	respondJSON(w, http.StatusOK, material)
}

// updateMaterial updates material fields except the stock counter
func (r *Router) updateMaterial(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid material ID")
		return
	}

	var material models.Material
	if err := r.db.First(&material, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Material not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch material")
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Stock only moves through movements, never by direct edit
	delete(updates, "current_stock")
	delete(updates, "id")

	if err := r.db.Model(&material).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update material")
		return
	}
	respondJSON(w, http.StatusOK, material)
}

// listBatches returns the active batches of a material in FEFO order
func (r *Router) listBatches(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid material ID")
		return
	}

	var batches []models.MaterialBatch
	if err := r.db.Where("material_id = ? AND active = ?", id, true).
		Order("expiry_date ASC NULLS LAST, intake_date ASC").
		Find(&batches).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch batches")
		return
	}
	respondJSON(w, http.StatusOK, batches)
}

// listMovements returns the movement history of a material, newest first
func (r *Router) listMovements(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid material ID")
		return
	}

	var movements []models.InventoryMovement
	if err := r.db.Where("material_id = ?", id).
		Order("occurred_at DESC, id DESC").Limit(200).
		Find(&movements).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch movements")
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

// createMovement records a manual inventory movement
func (r *Router) createMovement(w http.ResponseWriter, req *http.Request) {
	var input engine.MovementInput
	if err := json.NewDecoder(req.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	movement, err := r.engine.RecordMovement(input)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}
