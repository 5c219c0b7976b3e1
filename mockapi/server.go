package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server is an interface for the component that responds to CloudBalance API
// requests.
type Server interface {
	// Handler returns the server's request handler, including CORS handling.
	Handler() http.Handler
	// ListenAndServe causes the server to start serving HTTP requests. It
	// blocks until the context is canceled or an error occurs.
	ListenAndServe(ctx context.Context) error
}

type server struct {
	*baseEndpoints
	config  Config
	handler http.Handler
}

type endpoints interface {
	register(router *mux.Router)
}

// NewServer returns a mock CloudBalance API server backed by the given
// Service. Every API route lives beneath /api.
func NewServer(config Config, service *Service) Server {
	base := &baseEndpoints{
		service: service,
		now:     service.now,
	}
	router := mux.NewRouter()
	router.StrictSlash(true)
	apiRouter := router.PathPrefix("/api").Subrouter()
	for _, eps := range []endpoints{
		&authEndpoints{baseEndpoints: base},
		&userEndpoints{baseEndpoints: base},
		&accountEndpoints{baseEndpoints: base},
		&costEndpoints{baseEndpoints: base},
		&awsEndpoints{baseEndpoints: base},
	} {
		eps.register(apiRouter)
	}
	s := &server{
		baseEndpoints: base,
		config:        config,
		handler: cors.New(
			cors.Options{
				AllowedOrigins:   config.AllowedOrigins,
				AllowedMethods:   []string{"DELETE", "GET", "POST", "PUT"},
				AllowedHeaders:   []string{"Authorization", "Content-Type"},
				AllowCredentials: true,
			},
		).Handler(router),
	}
	// Health check
	router.HandleFunc(
		"/healthz",
		s.checkHealth, // No filters applied to this request
	).Methods(http.MethodGet)
	return s
}

func (s *server) Handler() http.Handler {
	return s.handler
}

func (s *server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: h2c.NewHandler(s.handler, &http2.Server{}),
	}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof(
			"Mock API server is listening without TLS on 0.0.0.0:%d",
			s.config.Port,
		)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "error shutting down mock API server")
	}
	return ctx.Err()
}

func (s *server) checkHealth(w http.ResponseWriter, r *http.Request) {
	s.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return struct{}{}, nil
			},
			raw: true,
		},
	)
}
