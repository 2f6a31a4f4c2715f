package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every API route on r.
func RegisterRoutes(h *Handler, r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")

	// Platform constraints
	r.HandleFunc("/api/platforms", h.ListPlatforms).Methods("GET")
	r.HandleFunc("/api/platforms/limits", h.PlatformLimits).Methods("GET")
	r.HandleFunc("/api/platforms/validate", h.ValidateDraft).Methods("POST")

	// Calendar
	r.HandleFunc("/api/calendar/team/{teamId}", h.CalendarView).Methods("GET")
	r.HandleFunc("/api/calendar/navigate", h.NavigateCalendar).Methods("GET")
	r.HandleFunc("/api/calendar/drag/team/{teamId}", h.BeginDrag).Methods("POST")
	r.HandleFunc("/api/calendar/drop", h.CompleteDrop).Methods("POST")

	// Posts and per-platform schedules
	r.HandleFunc("/api/posts/team/{teamId}", h.ListPosts).Methods("GET")
	r.HandleFunc("/api/posts/team/{teamId}", h.CreatePost).Methods("POST")
	r.HandleFunc("/api/posts/{postId}/team/{teamId}", h.DeletePost).Methods("DELETE")
	r.HandleFunc("/api/posts/{postId}/schedules/{scheduleId}/team/{teamId}", h.RescheduleEntry).Methods("PUT")
	r.HandleFunc("/api/posts/{postId}/schedules/{scheduleId}/team/{teamId}", h.DeleteSchedule).Methods("DELETE")

	// Realtime
	r.HandleFunc("/api/events/ws", h.EventsWebSocket).Methods("GET")
}
