package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "romy/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"romy/backend/internal/ratelimit"
)

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(
	chatHandler *ChatHandler,
	mediaHandler *MediaHandler,
	limiter *ratelimit.GuestLimiter,
	uploadsDir string,
) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	// These are applied to every request.
	r.Use(middleware.RequestID) // Injects a unique request ID into the context.
	r.Use(middleware.RealIP)    // Sets the remote address to the real IP from proxy headers.
	r.Use(middleware.Logger)    // Logs the start and end of each request with useful info.
	r.Use(middleware.Recoverer) // Recovers from panics and returns a 500 error.

	// --- Public Routes ---

	// Serves the auto-generated Swagger UI for API documentation.
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// A simple health check endpoint. Crucial for container orchestration systems
	// like Kubernetes to perform liveness and readiness probes.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// --- API Version 1 Routes ---
	r.Route("/api/v1", func(r chi.Router) {

		// Group for standard JSON API routes that should have a request timeout
		// to prevent client connections from hanging indefinitely.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// --- Preferences ---
			r.Get("/preferences", chatHandler.GetPreferences)
			r.Put("/preferences", chatHandler.UpdatePreferences)

			// --- Chats ---
			r.Get("/chats", chatHandler.GetChats)
			r.Get("/chats/{chatID}", chatHandler.GetChat)
			r.Get("/chats/{chatID}/export", chatHandler.HandleExportChat)
			r.Put("/chats/{chatID}/title", chatHandler.UpdateChatTitle)
			r.Delete("/chats/{chatID}", chatHandler.HandleDeleteChat)
			r.Post("/chats/{chatID}/messages/{messageID}/feedback", chatHandler.HandleFeedback)

			// --- Uploads & Voice ---
			r.Post("/uploads", mediaHandler.HandleUpload)
			r.Delete("/uploads/{uploadID}", mediaHandler.HandleDeleteUpload)
			r.Post("/transcriptions", mediaHandler.HandleTranscribe)
		})

		// Group for long-running, streaming endpoints. These routes must NOT have a timeout,
		// as they are designed to hold a connection open for an extended period.
		// The guest quota gate sits in front of message creation only.
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/chats/messages", chatHandler.HandleStreamMessage)
		})
	})

	// --- Uploaded File Server ---
	// Attachments are fetched back by the chat pipeline (and the browser)
	// from the same service that stored them.
	fileServer := http.FileServer(http.Dir(uploadsDir))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	return r
}
