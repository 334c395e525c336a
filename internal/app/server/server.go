package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/app/registry"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/app/server/handlers"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/services"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/pkg/middleware"
)

type Server struct {
	log      *slog.Logger
	router   chi.Router
	addr     string
	name     string
	tokenSvc *services.TokenService

	wsHandler    *handlers.WSHandler
	chatHandler  *handlers.ChatHandler
	notifHandler *handlers.NotificationHandler
}

func NewServer(
	log *slog.Logger,
	name, addr string,
	tokenSvc *services.TokenService,
	authSvc *services.AuthService,
	msgSvc *services.MessageService,
	callSvc *services.CallService,
	notifSvc *services.NotificationService,
	hub *registry.Registry,
) *Server {
	s := &Server{
		log:          log,
		router:       chi.NewRouter(),
		addr:         addr,
		name:         name,
		tokenSvc:     tokenSvc,
		wsHandler:    handlers.NewWSHandler(log, hub, authSvc, msgSvc, callSvc),
		chatHandler:  handlers.NewChatHandler(log, msgSvc),
		notifHandler: handlers.NewNotificationHandler(log, notifSvc),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestLogger(s.log))
	r.Use(middleware.TracerMiddleware(s.name))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// The socket gateway authenticates its own handshake.
	r.Get("/ws", s.wsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(s.tokenSvc))

		r.Get("/conversations", s.chatHandler.ListConversations)
		r.Post("/conversations/{userId}/messages", s.chatHandler.SendMessage)
		r.Get("/conversations/{id}/messages", s.chatHandler.ListMessages)
		r.Delete("/conversations/{id}", s.chatHandler.DeleteConversation)
		r.Post("/messages/{id}/read", s.chatHandler.MarkRead)

		r.Get("/notifications", s.notifHandler.List)
		r.Post("/notifications/{id}/read", s.notifHandler.MarkRead)
	})
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}
