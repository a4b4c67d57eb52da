package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/farhad-a/openclaw-mission-control/internal/agent"
	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	"github.com/farhad-a/openclaw-mission-control/internal/config"
	"github.com/farhad-a/openclaw-mission-control/internal/gateway"
	"github.com/farhad-a/openclaw-mission-control/internal/pushsubscription"
	"github.com/farhad-a/openclaw-mission-control/internal/task"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
	"github.com/farhad-a/openclaw-mission-control/pkg/clog"
)

type Server struct {
	server             *http.Server
	env                *config.Env
	agentRepo          agent.Repository
	boardServer        *board.Server
	agentServer        *agent.Server
	taskServer         *task.Server
	gatewayServer      *gateway.Server
	subscriptionServer *pushsubscription.Server
}

func NewServer(
	env *config.Env,
	agentRepo agent.Repository,
	boardServer *board.Server,
	agentServer *agent.Server,
	taskServer *task.Server,
	gatewayServer *gateway.Server,
	subscriptionServer *pushsubscription.Server,
) *Server {
	return &Server{
		env:                env,
		agentRepo:          agentRepo,
		boardServer:        boardServer,
		agentServer:        agentServer,
		taskServer:         taskServer,
		gatewayServer:      gatewayServer,
		subscriptionServer: subscriptionServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests, so cancelling it (shutdown signal)
// cancels in-flight request contexts as well.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
			s.actorMiddleware,
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
		s.boardServer.RegisterRoutes(r)
		s.agentServer.RegisterRoutes(r)
		s.taskServer.RegisterRoutes(r)
		s.gatewayServer.RegisterRoutes(r)
		s.subscriptionServer.RegisterRoutes(r)
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actorMiddleware resolves the caller identity. Requests carrying X-Agent-ID
// act as that agent; everything else behind the API key is an operator.
// Identity resolution beyond this header mapping lives outside this service.
func (s *Server) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID := r.Header.Get("X-Agent-ID")
		if agentID == "" {
			next.ServeHTTP(w, r.WithContext(auth.WithActor(ctx, auth.Operator())))
			return
		}

		a, err := s.agentRepo.Get(ctx, agentID)
		if err != nil {
			cerr.SetJSONError(ctx, cerr.NewError(cerr.Unauthenticated, "unknown agent", err))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithActor(ctx, auth.AgentActor(a))))
	})
}
