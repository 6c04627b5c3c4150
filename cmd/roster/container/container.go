package container

import (
	"github.com/lyzr/coffeeroster/cmd/roster/repository"
	"github.com/lyzr/coffeeroster/cmd/roster/service"
	"github.com/lyzr/coffeeroster/common/auth"
	"github.com/lyzr/coffeeroster/common/bootstrap"
	"github.com/lyzr/coffeeroster/common/idempotency"
	"github.com/lyzr/coffeeroster/common/ratelimit"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Storage
	Store repository.Store

	// Services
	ParticipantService *service.ParticipantService
	PurchaseService    *service.PurchaseService
	RotationService    *service.RotationService

	// Login and request plumbing; Limiter and Tokens are nil when disabled
	Passwords   *auth.PasswordChecker
	Tokens      *auth.TokenIssuer
	Limiter     *ratelimit.RateLimiter
	Idempotency *idempotency.Store
}

// NewContainer initializes all services and repositories once. It uses the
// Postgres store when bootstrap opened a database and the in-memory store
// otherwise.
func NewContainer(components *bootstrap.Components) *Container {
	var store repository.Store
	if components.DB != nil {
		store = repository.NewPostgresStore(components.DB)
	} else {
		components.Logger.Warn("using in-memory storage; data is lost on restart")
		store = repository.NewMemoryStore()
	}

	return NewContainerWithStore(components, store)
}

// NewContainerWithStore wires services over an explicit store
func NewContainerWithStore(components *bootstrap.Components, store repository.Store) *Container {
	cfg := components.Config
	log := components.Logger

	// Initialize services (bottom-up: dependencies first)
	nextBuyer := service.NewNextBuyerCache(components.Cache, cfg.Cache.DefaultTTL, log)
	participantService := service.NewParticipantService(store, nextBuyer, log)
	purchaseService := service.NewPurchaseService(store, nextBuyer, log)
	rotationService := service.NewRotationService(
		store,
		purchaseService,
		nextBuyer,
		service.RotationConfig{SwallowHistoryErrors: cfg.Features.SwallowHistoryErrors},
		log,
	)

	c := &Container{
		Components:         components,
		Store:              store,
		ParticipantService: participantService,
		PurchaseService:    purchaseService,
		RotationService:    rotationService,
		Passwords:          auth.NewPasswordChecker(cfg.Auth.SharedPassword, cfg.Auth.SharedPasswordHash),
		Tokens:             auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
	}

	if components.Cache != nil {
		c.Idempotency = idempotency.NewStore(components.Cache, cfg.Features.IdempotencyTTL)
	}
	if components.Redis != nil {
		c.Limiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), log)
	}

	return c
}
