package providers

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/readleafapp/readleaf-server/internal/config"
	"github.com/readleafapp/readleaf-server/internal/logger"
	"github.com/readleafapp/readleaf-server/internal/service"
	"github.com/readleafapp/readleaf-server/internal/watcher"
)

// WatcherHandle wraps the metadata watcher with its context for lifecycle management.
type WatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Close()
}

// ProvideLibraryWatcher provides the Calibre metadata.db watcher. Returns an
// empty handle when watching is disabled or no library is configured.
func ProvideLibraryWatcher(i do.Injector) (*WatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Calibre.WatchLibrary || cfg.Calibre.LibraryPath == "" {
		log.Info("Library watching disabled")
		return &WatcherHandle{}, nil
	}

	libraryService := do.MustInvoke[*service.LibraryService](i)

	metadataPath := filepath.Join(cfg.Calibre.LibraryPath, "metadata.db")
	w, err := watcher.New(metadataPath, func(ctx context.Context) {
		result, err := libraryService.IngestCalibre(ctx)
		if err != nil {
			log.Error("Automatic ingest failed", "error", err)
			return
		}
		log.Info("Automatic ingest completed",
			"added", result.Added,
			"updated", result.Updated,
			"unchanged", result.Unchanged,
		)
	}, log.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.Calibre.WatchDebounce > 0 {
		w.SetDebounce(cfg.Calibre.WatchDebounce)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Library watcher stopped", "error", err)
		}
	}()

	return &WatcherHandle{Watcher: w, cancel: cancel}, nil
}
