// Package server wires services to the HTTP surface.
package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/auth"
	"github.com/FatPandaC8/Vexpo/internal/booths"
	"github.com/FatPandaC8/Vexpo/internal/companies"
	"github.com/FatPandaC8/Vexpo/internal/expos"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/realtime"
	"github.com/FatPandaC8/Vexpo/internal/registrations"
	"github.com/FatPandaC8/Vexpo/internal/users"
	"github.com/FatPandaC8/Vexpo/pkg/pagination"
	"github.com/FatPandaC8/Vexpo/pkg/utils"
)

// UserStore serves both the token issuer and user management.
type UserStore interface {
	auth.UserStore
	users.Store
}

// BoothStore serves the booth manager and the expo model index.
type BoothStore interface {
	booths.Store
	expos.ModelIndex
}

// Stores is one persistence backend, either pgx repositories or the memory store.
type Stores struct {
	Users         UserStore
	Expos         expos.Store
	Booths        BoothStore
	Companies     companies.Store
	Registrations registrations.Store
}

// Options carries infrastructure shared by services and handlers. Provider,
// Storage, Cleaner and Hub are optional.
type Options struct {
	JWT         *auth.JWTService
	Hasher      utils.Hasher
	Provider    auth.IdentityProvider
	Storage     booths.ModelStorage
	Cleaner     booths.Cleaner
	Hub         *realtime.Hub
	Grid        models.FloorMap
	Limits      pagination.Limits
	CORSOrigins string
	FrontendURL string
	Health      func(ctx context.Context) error
	Logger      *zap.Logger
}

// Services is the set of domain services behind the router.
type Services struct {
	Auth          *auth.Service
	Users         *users.Service
	Expos         *expos.Service
	Booths        *booths.Service
	Companies     *companies.Service
	Registrations *registrations.Service
}

// NewServices builds every domain service on top of st.
func NewServices(st Stores, o Options) *Services {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var notifier booths.Notifier
	if o.Hub != nil {
		notifier = o.Hub
	}
	return &Services{
		Auth:      auth.NewService(st.Users, o.JWT, o.Hasher, logger.Named("auth")),
		Users:     users.NewService(st.Users, logger.Named("users")),
		Expos:     expos.NewService(st.Expos, st.Booths, o.Cleaner, notifier, logger.Named("expos")),
		Companies: companies.NewService(st.Companies, logger.Named("companies")),
		Booths: booths.NewService(booths.Deps{
			Store:     st.Booths,
			Expos:     st.Expos,
			Companies: st.Companies,
			Grid:      o.Grid,
			Storage:   o.Storage,
			Cleaner:   o.Cleaner,
			Notifier:  notifier,
			Logger:    logger.Named("booths"),
		}),
		Registrations: registrations.NewService(st.Registrations, st.Expos, logger.Named("registrations")),
	}
}
