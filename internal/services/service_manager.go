package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/validator"
)

// ServiceManager wires every service over one repository and hands them to
// the transport layer.
type ServiceManager interface {
	Survey() SurveyService
	Response() ResponseService
	Guard() GuardService
	Analytics() AnalyticsService
	Export() ExportService
	Expiry() ExpiryService
}

type ManagerConfig struct {
	ResponseTTL       time.Duration
	AnalyticsWorkers  int
	AnalyticsCacheTTL time.Duration
}

type serviceManager struct {
	survey    SurveyService
	response  ResponseService
	guard     GuardService
	analytics AnalyticsService
	export    ExportService
	expiry    ExpiryService
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	config ManagerConfig,
) ServiceManager {
	policy := TTLPolicy{Default: config.ResponseTTL}
	guard := NewGuardService(repo, policy, logger)

	return &serviceManager{
		survey:   NewSurveyService(repo, cacheService, publisher, logger, validator),
		response: NewResponseService(repo, guard, cacheService, publisher, logger, validator),
		guard:    guard,
		analytics: NewAnalyticsService(repo, cacheService, logger, AnalyticsConfig{
			Workers:  config.AnalyticsWorkers,
			CacheTTL: config.AnalyticsCacheTTL,
		}),
		export: NewExportService(repo, logger),
		expiry: NewExpiryService(repo, policy, publisher, logger),
	}
}

func (m *serviceManager) Survey() SurveyService       { return m.survey }
func (m *serviceManager) Response() ResponseService   { return m.response }
func (m *serviceManager) Guard() GuardService         { return m.guard }
func (m *serviceManager) Analytics() AnalyticsService { return m.analytics }
func (m *serviceManager) Export() ExportService       { return m.export }
func (m *serviceManager) Expiry() ExpiryService       { return m.expiry }
