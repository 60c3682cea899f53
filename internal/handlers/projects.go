package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// listProjects returns all projects, newest first
func (r *Router) listProjects(w http.ResponseWriter, req *http.Request) {
	var projects []models.Project
	if err := r.db.Order("created_at DESC").Find(&projects).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch projects")
		return
	}
	respondJSON(w, http.StatusOK, projects)
}

// createProject creates a new project
func (r *Router) createProject(w http.ResponseWriter, req *http.Request) {
	var project models.Project
	if err := json.NewDecoder(req.Body).Decode(&project); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if project.Name == "" {
		respondError(w, http.StatusBadRequest, "Project name is required")
		return
	}
	if project.Status == "" {
		project.Status = models.ProjectActive
	}
	if err := r.db.Create(&project).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}
	respondJSON(w, http.StatusCreated, project)
}

// getProject returns a single project with its activities
func (r *Router) getProject(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var project models.Project
	if err := r.db.Preload("Activities").First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Project not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// updateProject updates project fields
func (r *Router) updateProject(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Project not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch project")
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Overall progress is derived from activities, never set directly
	delete(updates, "overall_progress")
	delete(updates, "id")

	if err := r.db.Model(&project).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// deleteProject removes a project and its activities
func (r *Router) deleteProject(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		var activityIDs []uint
		if err := tx.Model(&models.Activity{}).Where("project_id = ?", id).
			Pluck("id", &activityIDs).Error; err != nil {
			return err
		}
		if len(activityIDs) > 0 {
			if err := tx.Where("activity_id IN ?", activityIDs).
				Delete(&models.ActivityMaterial{}).Error; err != nil {
				return err
			}
			if err := tx.Where("activity_id IN ? OR predecessor_id IN ?", activityIDs, activityIDs).
				Delete(&models.ActivityDependency{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", id).Delete(&models.Activity{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Alert{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// pendingConsumption returns the projected remaining consumption per material
func (r *Router) pendingConsumption(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	pending, err := r.engine.PendingConsumption(id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

// blockedActivities returns the activities held up by unmet dependencies
func (r *Router) blockedActivities(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	blocked, err := r.engine.BlockedActivities(id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, blocked)
}

// simulateProject runs a what-if progress simulation for a project
func (r *Router) simulateProject(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var body struct {
		HypotheticalProgress float64 `json:"hypothetical_progress"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := r.engine.Simulate(id, body.HypotheticalProgress)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
