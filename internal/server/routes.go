package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Generated media assets
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(s.app.Media.Root()))))

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.SubmitJobHandler) // POST - submit
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)                // GET /{id}, POST /{id}/cancel

	// API routes - Projects
	mux.HandleFunc("/api/projects", s.app.ProjectHandler.CreateProjectHandler) // POST - create
	mux.HandleFunc("/api/projects/", s.handleProjectRoutes)                    // GET /{id}, GET /{id}/jobs

	// API routes - Queues
	mux.HandleFunc("/api/queues", s.app.JobHandler.QueueCountsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes /api/jobs/{id} requests
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/jobs/{id}/cancel
	if r.Method == http.MethodPost && strings.HasSuffix(path, "/cancel") {
		s.app.JobHandler.CancelJobHandler(w, r)
		return
	}

	// GET /api/jobs/{id}
	if r.Method == http.MethodGet {
		s.app.JobHandler.GetJobHandler(w, r)
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// handleProjectRoutes routes /api/projects/{id} requests
func (s *Server) handleProjectRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET /api/projects/{id}/jobs
	if r.Method == http.MethodGet && strings.HasSuffix(path, "/jobs") {
		s.app.JobHandler.ListProjectJobsHandler(w, r)
		return
	}

	// GET /api/projects/{id}
	if r.Method == http.MethodGet {
		s.app.ProjectHandler.GetProjectHandler(w, r)
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
