package factory

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/adapters/frontend"
	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/ports"
	"github.com/mikey/phishsense/internal/scoring"
	"github.com/mikey/phishsense/internal/utils"
	"github.com/mikey/phishsense/internal/whitelist"
)

// FrontendFactory creates the daemon frontends based on configuration
type FrontendFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	service       *core.AnalysisService
	models        *scoring.Service
	textProcessor *utils.TextProcessor
	trusted       *whitelist.Checker
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.AnalysisService,
	models *scoring.Service,
	textProcessor *utils.TextProcessor,
	trusted *whitelist.Checker,
) *FrontendFactory {
	return &FrontendFactory{
		cfg:           cfg,
		logger:        logger,
		service:       service,
		models:        models,
		textProcessor: textProcessor,
		trusted:       trusted,
	}
}

// CreateFrontends creates every frontend named in server.frontends
func (f *FrontendFactory) CreateFrontends() ([]ports.Frontend, error) {
	sc := f.cfg.GetServer()
	if len(sc.Frontends) == 0 {
		return nil, fmt.Errorf("no frontends configured")
	}

	var frontends []ports.Frontend
	seen := make(map[string]bool)
	for _, name := range sc.Frontends {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "http":
			frontends = append(frontends, frontend.NewHTTPFrontend(f.service, f.models, f.logger, sc.HTTP))
		case "smtp":
			frontends = append(frontends, frontend.NewSMTPFilter(f.service, f.trusted, f.textProcessor, f.logger, sc.SMTP, sc.MaxBodySize))
		default:
			return nil, fmt.Errorf("unsupported frontend: %s", name)
		}
	}
	return frontends, nil
}
