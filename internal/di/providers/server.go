package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/readleafapp/readleaf-server/internal/api"
	"github.com/readleafapp/readleaf-server/internal/config"
	"github.com/readleafapp/readleaf-server/internal/logger"
	"github.com/readleafapp/readleaf-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	libraryService := do.MustInvoke[*service.LibraryService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	progressService := do.MustInvoke[*service.ProgressService](i)
	streakService := do.MustInvoke[*service.StreakService](i)

	services := &api.Services{
		Library:  libraryService,
		Session:  sessionService,
		Progress: progressService,
		Streak:   streakService,
	}

	handler := api.NewServer(api.Options{
		Store:      storeHandle.Store,
		Services:   services,
		Search:     indexHandle.SearchIndex,
		CORSOrigin: cfg.Server.CORSOrigin,
		Logger:     log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
