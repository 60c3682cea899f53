package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sitemat/sitematgo/internal/engine"
	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// listActivities returns all activities of a project ordered by planned start
func (r *Router) listActivities(w http.ResponseWriter, req *http.Request) {
	projectID, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var activities []models.Activity
	if err := r.db.Where("project_id = ?", projectID).
		Order("planned_start_date ASC, id ASC").Find(&activities).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch activities")
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

// createActivity creates a new activity inside a project
func (r *Router) createActivity(w http.ResponseWriter, req *http.Request) {
	var activity models.Activity
	if err := json.NewDecoder(req.Body).Decode(&activity); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if activity.Name == "" || activity.ProjectID == 0 {
		respondError(w, http.StatusBadRequest, "Activity name and project_id are required")
		return
	}

	var project models.Project
	if err := r.db.First(&project, activity.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Project not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch project")
		return
	}

	if err := r.db.Create(&activity).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create activity")
		return
	}
	respondJSON(w, http.StatusCreated, activity)
}

// updateActivity updates activity fields except derived progress
func (r *Router) updateActivity(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid activity ID")
		return
	}

	var activity models.Activity
	if err := r.db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Activity not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch activity")
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Real progress only moves through the confirmation endpoint
	delete(updates, "real_progress")
	delete(updates, "id")
	delete(updates, "project_id")

	if err := r.db.Model(&activity).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update activity")
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// deleteActivity removes an activity, its material links and dependency edges
func (r *Router) deleteActivity(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid activity ID")
		return
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", id).Delete(&models.ActivityMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Where("activity_id = ? OR predecessor_id = ?", id, id).
			Delete(&models.ActivityDependency{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Activity{}, id).Error
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete activity")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// listActivityMaterials returns the material links of an activity
func (r *Router) listActivityMaterials(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid activity ID")
		return
	}

	var links []models.ActivityMaterial
	if err := r.db.Preload("Material").Where("activity_id = ?", id).
		Order("id ASC").Find(&links).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch activity materials")
		return
	}
	respondJSON(w, http.StatusOK, links)
}

// addActivityMaterial links a material to an activity with an estimated quantity
func (r *Router) addActivityMaterial(w http.ResponseWriter, req *http.Request) {
	activityID, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid activity ID")
		return
	}

	var link models.ActivityMaterial
	if err := json.NewDecoder(req.Body).Decode(&link); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	link.ActivityID = activityID

	if link.MaterialID == 0 {
		respondError(w, http.StatusBadRequest, "material_id is required")
		return
	}
	if link.EstimatedQty <= 0 {
		respondError(w, http.StatusBadRequest, "estimated_qty must be positive")
		return
	}

	var activity models.Activity
	if err := r.db.First(&activity, activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Activity not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch activity")
		return
	}
	var material models.Material
	if err := r.db.First(&material, link.MaterialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Material not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch material")
		return
	}
	// A new link cannot promise more than what is on hand today
	if link.EstimatedQty > material.CurrentStock {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf(
			"estimated_qty (%.2f) exceeds current stock of %s (%.2f)",
			link.EstimatedQty, material.Name, material.CurrentStock))
		return
	}

	if err := r.db.Create(&link).Error; err != nil {
		respondError(w, http.StatusConflict, "Material is already linked to this activity")
		return
	}
	respondJSON(w, http.StatusCreated, link)
}

// updateActivityMaterial changes the estimated quantity of a link
func (r *Router) updateActivityMaterial(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid link ID")
		return
	}

	var link models.ActivityMaterial
	if err := r.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Activity material not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch activity material")
		return
	}

	var body struct {
		EstimatedQty float64 `json:"estimated_qty"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.EstimatedQty < link.ConsumedQty {
		respondError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("estimated_qty cannot drop below consumed quantity (%.2f)", link.ConsumedQty))
		return
	}

	if err := r.db.Model(&link).Update("estimated_qty", body.EstimatedQty).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update activity material")
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// removeActivityMaterial unlinks a material from an activity
func (r *Router) removeActivityMaterial(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid link ID")
		return
	}

	var link models.ActivityMaterial
	if err := r.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Activity material not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch activity material")
		return
	}
	if link.ConsumedQty > 0 {
		respondError(w, http.StatusUnprocessableEntity, "Cannot remove a link with recorded consumption")
		return
	}

	if err := r.db.Delete(&link).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to remove activity material")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// addDependency creates a dependency edge onto the activity, rejecting cycles
func (r *Router) addDependency(w http.ResponseWriter, req *http.Request) {
	activityID, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid activity ID")
		return
	}

	var dep models.ActivityDependency
	if err := json.NewDecoder(req.Body).Decode(&dep); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	dep.ActivityID = activityID

	if dep.Type == "" {
		dep.Type = models.DependencyFS
	}
	if !models.ValidDependencyType(dep.Type) {
		respondError(w, http.StatusBadRequest, "Invalid dependency type")
		return
	}
	if dep.PredecessorID == 0 {
		respondError(w, http.StatusBadRequest, "predecessor_id is required")
		return
	}
	if dep.PredecessorID == activityID {
		respondError(w, http.StatusUnprocessableEntity, "An activity cannot depend on itself")
		return
	}

	var activity, predecessor models.Activity
	if err := r.db.First(&activity, activityID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Activity not found")
		return
	}
	if err := r.db.First(&predecessor, dep.PredecessorID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Predecessor activity not found")
		return
	}
	if activity.ProjectID != predecessor.ProjectID {
		respondError(w, http.StatusUnprocessableEntity, "Dependencies must stay inside one project")
		return
	}

	cyclic, err := r.wouldCreateCycle(activity.ProjectID, activityID, dep.PredecessorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check dependency graph")
		return
	}
	if cyclic {
		respondError(w, http.StatusUnprocessableEntity, "Dependency would create a cycle")
		return
	}

	if err := r.db.Create(&dep).Error; err != nil {
		respondError(w, http.StatusConflict, "Dependency already exists")
		return
	}
	respondJSON(w, http.StatusCreated, dep)
}

// wouldCreateCycle walks predecessor edges from the candidate predecessor and
// reports whether the successor is reachable, which would close a loop.
func (r *Router) wouldCreateCycle(projectID, successorID, predecessorID uint) (bool, error) {
	var edges []models.ActivityDependency
	if err := r.db.
		Joins("JOIN activities ON activities.id = activity_dependencies.activity_id").
		Where("activities.project_id = ?", projectID).
		Find(&edges).Error; err != nil {
		return false, err
	}

	preds := make(map[uint][]uint)
	for _, e := range edges {
		preds[e.ActivityID] = append(preds[e.ActivityID], e.PredecessorID)
	}

	seen := map[uint]bool{}
	stack := []uint{predecessorID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == successorID {
			return true, nil
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, preds[cur]...)
	}
	return false, nil
}

// confirmProgress applies a progress confirmation with material consumptions
func (r *Router) confirmProgress(w http.ResponseWriter, req *http.Request) {
	activityID, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid activity ID")
		return
	}

	var body struct {
		NewProgress  float64                  `json:"new_progress"`
		Consumptions []engine.ConsumptionInput `json:"consumptions"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := r.engine.ConfirmProgress(activityID, body.NewProgress, body.Consumptions)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
