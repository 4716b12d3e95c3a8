package providers

import (
	"github.com/samber/do/v2"

	"github.com/readleafapp/readleaf-server/internal/calibre"
	"github.com/readleafapp/readleaf-server/internal/config"
	"github.com/readleafapp/readleaf-server/internal/logger"
	"github.com/readleafapp/readleaf-server/internal/service"
)

// ProvideLibraryService provides the Calibre ingest and book catalog service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	var source service.CalibreSource
	if cfg.Calibre.LibraryPath != "" {
		reader, err := calibre.Open(cfg.Calibre.LibraryPath)
		if err != nil {
			return nil, err
		}
		source = reader
		log.Info("Calibre library attached", "path", cfg.Calibre.LibraryPath)
	} else {
		log.Info("No Calibre library configured, ingest disabled until one is set")
	}

	svc := service.NewLibraryService(storeHandle.Store, source, log.Logger)
	svc.SetSearcher(indexHandle.SearchIndex)

	return svc, nil
}

// ProvideStreakService provides the reading streak service.
func ProvideStreakService(i do.Injector) (*service.StreakService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStreakService(storeHandle.Store, log.Logger), nil
}

// ProvideSessionService provides the reading session lifecycle service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	streakService := do.MustInvoke[*service.StreakService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewSessionService(storeHandle.Store, log.Logger)
	svc.SetStreakRebuilder(streakService)

	return svc, nil
}

// ProvideProgressService provides the progress log service.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	streakService := do.MustInvoke[*service.StreakService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewProgressService(storeHandle.Store, log.Logger)
	svc.SetStreakRebuilder(streakService)

	return svc, nil
}
