package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/auth"
	"github.com/FatPandaC8/Vexpo/internal/booths"
	"github.com/FatPandaC8/Vexpo/internal/companies"
	"github.com/FatPandaC8/Vexpo/internal/expos"
	"github.com/FatPandaC8/Vexpo/internal/middleware"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/realtime"
	"github.com/FatPandaC8/Vexpo/internal/registrations"
	"github.com/FatPandaC8/Vexpo/internal/users"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

// tokenKind says which token, if any, a route authenticates.
type tokenKind int

const (
	tokenNone tokenKind = iota
	tokenFull
	tokenTemp
)

// Route is one entry of the HTTP surface.
type Route struct {
	Method  string
	Path    string
	Token   tokenKind
	Require access.Requirement
	Handler gin.HandlerFunc
}

var (
	anyRole    = access.Authenticated()
	visitor    = access.Roles(models.RoleVisitor)
	exhibitor  = access.Roles(models.RoleExhibitor)
	organizer  = access.Roles(models.RoleOrganizer)
	boothStaff = access.Roles(models.RoleExhibitor, models.RoleOrganizer)
	adminOnly  = access.Roles(models.RoleAdmin)
)

func public(method, path string, h gin.HandlerFunc) Route {
	return Route{Method: method, Path: path, Token: tokenNone, Require: access.Public, Handler: h}
}

func guarded(method, path string, req access.Requirement, h gin.HandlerFunc) Route {
	return Route{Method: method, Path: path, Token: tokenFull, Require: req, Handler: h}
}

// Routes returns the route table. Admin passes every role gate; handlers
// route admin callers to the ownership-bypassing operations.
func Routes(svc *Services, o Options) []Route {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	authH := auth.NewHandler(svc.Auth, o.Provider, o.FrontendURL, o.Logger)
	userH := users.NewHandler(svc.Users, o.Limits, o.Logger)
	expoH := expos.NewHandler(svc.Expos, o.Limits, o.Logger)
	boothH := booths.NewHandler(svc.Booths, o.Limits, o.Logger)
	companyH := companies.NewHandler(svc.Companies, o.Limits)
	regH := registrations.NewHandler(svc.Registrations)

	routes := []Route{
		public(http.MethodGet, "/health", health(o)),

		public(http.MethodPost, "/auth/register", authH.Register),
		public(http.MethodPost, "/auth/login", authH.Login),
		public(http.MethodGet, "/auth/google", authH.GoogleLogin),
		public(http.MethodGet, "/auth/google/callback", authH.GoogleCallback),
		{Method: http.MethodPost, Path: "/auth/oauth/complete", Token: tokenTemp, Handler: authH.CompleteOAuth},
		guarded(http.MethodPost, "/auth/logout", anyRole, authH.Logout),

		guarded(http.MethodGet, "/me", anyRole, userH.Me),
		guarded(http.MethodGet, "/me/booths", exhibitor, boothH.Mine),
		guarded(http.MethodGet, "/me/company", exhibitor, companyH.Mine),
		guarded(http.MethodGet, "/me/expos", organizer, expoH.Mine),
		guarded(http.MethodGet, "/me/registrations", visitor, regH.Mine),
		public(http.MethodGet, "/users/:id/public", userH.Public),

		public(http.MethodGet, "/expos", expoH.List),
		public(http.MethodGet, "/expos/:id", expoH.GetByID),
		public(http.MethodGet, "/expos/:id/booths", boothH.ListApproved),
		guarded(http.MethodGet, "/expos/:id/booths/all", organizer, boothH.ListAll),
		guarded(http.MethodGet, "/expos/:id/registrations", organizer, regH.ListByExpo),
		guarded(http.MethodPost, "/expos", organizer, expoH.Create),
		guarded(http.MethodPatch, "/expos/:id", organizer, expoH.Update),
		guarded(http.MethodDelete, "/expos/:id", organizer, expoH.Delete),
		guarded(http.MethodPost, "/expos/:id/booths", exhibitor, boothH.Create),
		guarded(http.MethodPost, "/expos/:id/registration", visitor, regH.Register),
		guarded(http.MethodDelete, "/expos/:id/registration", visitor, regH.Unregister),

		public(http.MethodGet, "/booths", boothH.List),
		public(http.MethodGet, "/booths/:id", boothH.GetByID),
		guarded(http.MethodPatch, "/booths/:id", boothStaff, boothH.Update),
		guarded(http.MethodDelete, "/booths/:id", boothStaff, boothH.Delete),
		guarded(http.MethodPatch, "/booths/:id/status", organizer, boothH.SetStatus),
		guarded(http.MethodPost, "/booths/:id/model/upload-url", boothStaff, boothH.ModelUploadURL),
		guarded(http.MethodPost, "/booths/:id/model", boothStaff, boothH.UploadModel),

		public(http.MethodGet, "/companies", companyH.List),
		public(http.MethodGet, "/companies/:id", companyH.GetByID),
		guarded(http.MethodPost, "/companies", exhibitor, companyH.Register),
		guarded(http.MethodPatch, "/companies/:id", exhibitor, companyH.Update),
		guarded(http.MethodDelete, "/companies/:id", adminOnly, companyH.Delete),

		guarded(http.MethodGet, "/admin/users", adminOnly, userH.List),
		guarded(http.MethodGet, "/admin/users/:id", adminOnly, userH.Get),
		guarded(http.MethodPatch, "/admin/users/:id", adminOnly, userH.Update),
		guarded(http.MethodPost, "/admin/users/:id/roles", adminOnly, userH.AssignRole),
		guarded(http.MethodDelete, "/admin/users/:id", adminOnly, userH.Delete),
		guarded(http.MethodGet, "/admin/expos", adminOnly, expoH.List),
		guarded(http.MethodPatch, "/admin/expos/:id", adminOnly, expoH.Update),
		guarded(http.MethodDelete, "/admin/expos/:id", adminOnly, expoH.Delete),
		guarded(http.MethodGet, "/admin/booths", adminOnly, boothH.List),
		guarded(http.MethodPatch, "/admin/booths/:id", adminOnly, boothH.Update),
		guarded(http.MethodDelete, "/admin/booths/:id", adminOnly, boothH.Delete),
	}
	if o.Hub != nil {
		ws := realtime.ServeWs(o.Hub, realtime.NewUpgrader(middleware.ParseOrigins(o.CORSOrigins)), o.JWT, svc.Expos, o.Logger)
		routes = append(routes, public(http.MethodGet, "/ws", ws))
	}
	return routes
}

// NewRouter builds the gin engine with middleware and the route table.
func NewRouter(svc *Services, o Options) *gin.Engine {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(o.CORSOrigins))
	router.Use(middleware.Logger(o.Logger))

	for _, rt := range Routes(svc, o) {
		var chain []gin.HandlerFunc
		switch rt.Token {
		case tokenFull:
			chain = append(chain, middleware.Authenticate(o.JWT), middleware.Require(rt.Require))
		case tokenTemp:
			chain = append(chain, middleware.AuthenticateTemp(o.JWT))
		}
		router.Handle(rt.Method, rt.Path, append(chain, rt.Handler)...)
	}
	router.NoRoute(func(c *gin.Context) { response.NotFound(c, "route not found") })
	return router
}

func health(o Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		if o.Health != nil {
			if err := o.Health(c.Request.Context()); err != nil {
				o.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "unhealthy"})
				return
			}
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}
