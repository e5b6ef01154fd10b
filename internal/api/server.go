package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"classroom/pkg/interfaces"
	"classroom/pkg/types"
)

// StatsProvider supplies component statistics for the health endpoint
type StatsProvider interface {
	Stats() map[string]int
}

// Server is the HTTP read side: thin projections over the persisted
// room/event data plus explicit classroom creation. No room semantics live
// here; live coordination is entirely the WebSocket path's business.
type Server struct {
	store    interfaces.RoomStore
	gateway  StatsProvider
	registry StatsProvider
	router   *http.ServeMux
}

// NewServer creates the API server and sets up routing.
func NewServer(store interfaces.RoomStore, gateway StatsProvider, registry StatsProvider) *Server {
	s := &Server{
		store:    store,
		gateway:  gateway,
		registry: registry,
		router:   http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/classrooms", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleClassrooms))))
	s.router.Handle("/api/classrooms/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleClassroomByID))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

// ServeHTTP implements http.Handler for integration with the standard HTTP server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleClassrooms handles the collection endpoints
// (POST /api/classrooms, GET /api/classrooms)
func (s *Server) handleClassrooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createClassroom(w, r)
	case http.MethodGet:
		s.listClassrooms(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleClassroomByID handles the per-room endpoints
// (GET /api/classrooms/{id}/status, GET /api/classrooms/{id}/reports)
func (s *Server) handleClassroomByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/classrooms/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		s.sendError(w, http.StatusBadRequest, "Room ID is required")
		return
	}
	roomID := parts[0]

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "status":
		s.getClassroomStatus(w, r, roomID)
	case len(parts) == 2 && parts[1] == "reports":
		s.getClassroomReports(w, r, roomID)
	default:
		s.sendError(w, http.StatusNotFound, "Not found")
	}
}

// Request/Response types for JSON serialization
type CreateClassroomRequest struct {
	RoomID string     `json:"roomId"`
	Role   types.Role `json:"role"`
}

type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type classroomProjection struct {
	RoomID    string           `json:"roomId"`
	Active    bool             `json:"isActive"`
	Status    types.RoomStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

// createClassroom handles POST /api/classrooms. Only teachers may create;
// creating an existing room is not an error, it is reported as ready to
// join.
func (s *Server) createClassroom(w http.ResponseWriter, r *http.Request) {
	var req CreateClassroomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.RoomID == "" {
		s.sendError(w, http.StatusBadRequest, "Room ID is required")
		return
	}
	if !types.IsValidRoomID(req.RoomID) {
		s.sendError(w, http.StatusBadRequest, types.ErrInvalidRoomID.Error())
		return
	}
	if req.Role != types.RoleTeacher {
		s.sendError(w, http.StatusForbidden, "Only teachers can create classrooms")
		return
	}

	existing, err := s.store.FindRoomByKey(r.Context(), req.RoomID)
	if err == nil {
		s.sendJSON(w, http.StatusOK, Response{
			Status:  http.StatusOK,
			Message: "Classroom already exists and ready to join",
			Data: classroomProjection{
				RoomID:    existing.RoomID,
				Active:    existing.Active,
				Status:    existing.Status,
				CreatedAt: existing.CreatedAt,
			},
		})
		return
	}
	if !errors.Is(err, interfaces.ErrRoomNotFound) {
		s.sendError(w, http.StatusInternalServerError, "Server error while creating classroom")
		return
	}

	room, err := s.store.CreateRoom(r.Context(), req.RoomID)
	if err != nil {
		// A concurrent teacher join can win the creation race.
		if errors.Is(err, interfaces.ErrRoomExists) {
			s.sendJSON(w, http.StatusOK, Response{
				Status:  http.StatusOK,
				Message: "Classroom already exists and ready to join",
			})
			return
		}
		s.sendError(w, http.StatusInternalServerError, "Server error while creating classroom")
		return
	}

	s.sendJSON(w, http.StatusCreated, Response{
		Status:  http.StatusCreated,
		Message: "Classroom created successfully",
		Data: classroomProjection{
			RoomID:    room.RoomID,
			Active:    room.Active,
			Status:    room.Status,
			CreatedAt: room.CreatedAt,
		},
	})
}

// listClassrooms handles GET /api/classrooms
func (s *Server) listClassrooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListRooms(r.Context())
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "Server error while retrieving classrooms")
		return
	}

	projections := make([]classroomProjection, len(rooms))
	for i, room := range rooms {
		projections[i] = classroomProjection{
			RoomID:    room.RoomID,
			Active:    room.Active,
			Status:    room.Status,
			CreatedAt: room.CreatedAt,
		}
	}

	s.sendJSON(w, http.StatusOK, Response{
		Status:  http.StatusOK,
		Message: "Classrooms retrieved successfully",
		Data:    map[string]interface{}{"classrooms": projections},
	})
}

// getClassroomStatus handles GET /api/classrooms/{id}/status. Students
// asking about a class that has not started get the same denial the join
// path would give them, with the status payload attached.
func (s *Server) getClassroomStatus(w http.ResponseWriter, r *http.Request, roomID string) {
	role := types.Role(r.URL.Query().Get("role"))

	room, err := s.store.FindRoomByKey(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			message := "Classroom not found"
			if role == types.RoleStudent {
				message = "This classroom does not exist"
			}
			s.sendError(w, http.StatusNotFound, message)
			return
		}
		s.sendError(w, http.StatusInternalServerError, "Server error while retrieving classroom status")
		return
	}

	projection := map[string]interface{}{
		"roomId":   room.RoomID,
		"isActive": room.Active,
		"status":   room.Status,
	}

	if role == types.RoleStudent && (!room.Active || room.Status != types.StatusOngoing) {
		s.sendJSON(w, http.StatusForbidden, Response{
			Status:  http.StatusForbidden,
			Message: "Class has not started yet. Please wait for a teacher to start the class.",
			Data:    projection,
		})
		return
	}

	s.sendJSON(w, http.StatusOK, Response{
		Status:  http.StatusOK,
		Message: "Classroom status retrieved successfully",
		Data:    projection,
	})
}

// getClassroomReports handles GET /api/classrooms/{id}/reports: the full
// persisted event log plus room metadata.
func (s *Server) getClassroomReports(w http.ResponseWriter, r *http.Request, roomID string) {
	room, err := s.store.FindRoomByKey(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			s.sendError(w, http.StatusNotFound, "Classroom not found")
			return
		}
		s.sendError(w, http.StatusInternalServerError, "Server error while retrieving reports")
		return
	}

	events, err := s.store.RoomEvents(r.Context(), roomID)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "Server error while retrieving reports")
		return
	}

	s.sendJSON(w, http.StatusOK, Response{
		Status:  http.StatusOK,
		Message: "Reports retrieved successfully",
		Data: map[string]interface{}{
			"events":    events,
			"classroom": room,
		},
	})
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
}

// healthCheck handles GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"

	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	connections := make(map[string]int)
	if s.gateway != nil {
		for k, v := range s.gateway.Stats() {
			connections[k] = v
		}
	}
	if s.registry != nil {
		for k, v := range s.registry.Stats() {
			connections[k] = v
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	s.sendJSON(w, code, HealthResponse{
		Status:      status,
		Timestamp:   time.Now(),
		Database:    dbStatus,
		Connections: connections,
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, Response{
		Status:  code,
		Message: message,
	})
}

// corsMiddleware enables web client access; open in development
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonMiddleware ensures proper content-type headers on all API responses
func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		next.ServeHTTP(w, r)
	})
}
