package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/exercise-resolver/internal/config"
	"github.com/listenupapp/exercise-resolver/internal/logger"
	"github.com/listenupapp/exercise-resolver/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// SearchIndex is nil when suggestions are disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve suggestion index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Suggestions disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Search.Path,
		Logger:   log.WithComponent("search").Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}
