package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/backend"
	"github.com/acorn-io/acorn-ddns/pkg/reconciler"
	"github.com/acorn-io/acorn-ddns/pkg/version"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Daemon is a background loop that runs next to the server until the server's context is done.
type Daemon interface {
	Start(ctx context.Context)
}

type apiServer struct {
	ctx  context.Context
	log  *logrus.Entry
	port int

	// daemonStopTimeout bounds how long shutdown waits for daemons to finish their current work
	daemonStopTimeout time.Duration
}

func NewAPIServer(ctx context.Context, log *logrus.Entry, port int) *apiServer {
	return &apiServer{
		ctx:               ctx,
		log:               log,
		port:              port,
		daemonStopTimeout: reconciler.DefaultRecordTimeout + 5*time.Second,
	}
}

func newRouter(log *logrus.Entry, backend backend.Backend) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(log))
	h := newHandler(backend)

	// When functioning properly, these routes will return the version of tha app that is running
	router.Path("/").HandlerFunc(h.root)
	router.Path("/healthz").HandlerFunc(h.root)

	api := router.PathPrefix("/v1").Subrouter()

	// Signing up returns the token that authenticates every request against /v1/records
	api.Path("/users").Methods("POST").HandlerFunc(h.signup)
	api.Path("/login").Methods("POST").HandlerFunc(h.login)

	// All routes using this authedRoutes subrouter will require token based authentication
	authedRoutes := api.NewRoute().Subrouter()
	authedRoutes.Use(tokenAuthMiddleware(backend))

	authedRoutes.Path("/records").Methods("GET").HandlerFunc(h.listRecords)
	authedRoutes.Path("/records").Methods("POST").HandlerFunc(h.createRecord)
	authedRoutes.Path("/records/refresh").Methods("POST").HandlerFunc(h.refresh)
	authedRoutes.Path("/records/{id:[0-9]+}").Methods("PATCH").HandlerFunc(h.updateRecord)
	authedRoutes.Path("/records/{id:[0-9]+}").Methods("DELETE").HandlerFunc(h.deleteRecord)

	// Note: this allows not found urls to be logged via the middleware
	// It **HAS** to be defined after all other paths are defined.
	router.NotFoundHandler = router.NewRoute().HandlerFunc(http.NotFound).GetHandler()

	return router
}

// Start serves the API and runs the daemons until the server's context is cancelled, then
// shuts the server down gracefully.
func (a *apiServer) Start(backend backend.Backend, daemons ...Daemon) error {
	a.log.Infof("Version: %s", version.Get())

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", a.port),
		Handler: ghandlers.CORS(
			ghandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
			ghandlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		)(newRouter(a.log, backend)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.WithField("port", a.port).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	var daemonGroup errgroup.Group
	for _, d := range daemons {
		daemonGroup.Go(func() error {
			d.Start(a.ctx)
			return nil
		})
	}

	<-a.ctx.Done()

	a.log.Info("shutting down the api server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer func() {
		cancel()
	}()

	shutdownErr := srv.Shutdown(ctx)
	if shutdownErr != nil {
		a.log.WithError(shutdownErr).Error("unable to shutdown the api server gracefully")
	}

	a.waitForDaemons(&daemonGroup)
	return shutdownErr
}

// waitForDaemons lets the daemons finish the record they are working on. A daemon that is still
// busy after daemonStopTimeout is abandoned.
func (a *apiServer) waitForDaemons(g *errgroup.Group) {
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.log.Info("background daemons stopped")
	case <-time.After(a.daemonStopTimeout):
		a.log.Warnf("background daemons still running after %v, exiting anyway", a.daemonStopTimeout)
	}
}
