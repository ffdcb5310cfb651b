// -----------------------------------------------------------------------
// Project handler - project CRUD and entity listings
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// ProjectHandler handles project and entity API requests
type ProjectHandler struct {
	entities interfaces.EntityStorage
	logger   arbor.ILogger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(entities interfaces.EntityStorage, logger arbor.ILogger) *ProjectHandler {
	return &ProjectHandler{
		entities: entities,
		logger:   logger,
	}
}

type createProjectRequest struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Plot    string `json:"plot"`
}

// CreateProjectHandler creates a new project
// POST /api/projects
func (h *ProjectHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "project name is required")
		return
	}

	project := &models.Project{
		ID:      models.NewEntityID(),
		Name:    req.Name,
		Summary: req.Summary,
		Plot:    req.Plot,
	}
	if err := h.entities.SaveProject(r.Context(), project); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create project")
		WriteError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	WriteJSON(w, http.StatusCreated, project)
}

// GetProjectHandler returns a project with its entity listings
// GET /api/projects/{id}
func (h *ProjectHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projectID := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	if projectID == "" || strings.Contains(projectID, "/") {
		WriteError(w, http.StatusBadRequest, "project id is required")
		return
	}

	ctx := r.Context()
	project, err := h.entities.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, interfaces.ErrEntityNotFound) {
			WriteError(w, http.StatusNotFound, "project not found")
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to read project")
		WriteError(w, http.StatusInternalServerError, "failed to read project")
		return
	}

	characters, err := h.entities.ListCharacters(ctx, projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list characters")
		return
	}
	objects, err := h.entities.ListObjects(ctx, projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list objects")
		return
	}
	scenes, err := h.entities.ListScenes(ctx, projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list scenes")
		return
	}
	videos, err := h.entities.ListVideos(ctx, projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project":    project,
		"characters": characters,
		"objects":    objects,
		"scenes":     scenes,
		"videos":     videos,
	})
}
