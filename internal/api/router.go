package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/relieflink/relief-gateway/internal/api/handlers"
	"github.com/relieflink/relief-gateway/internal/config"
	"github.com/relieflink/relief-gateway/internal/downstream"
	"github.com/relieflink/relief-gateway/internal/events"
	"github.com/relieflink/relief-gateway/internal/session"
	"github.com/relieflink/relief-gateway/middleware"
)

// Deps carries everything the router wires together. The relief client
// satisfies every per-role client interface.
type Deps struct {
	Cfg      *config.Config
	Log      zerolog.Logger
	Relief   *downstream.ReliefClient
	Geocoder handlers.Geocoder
	Sessions *session.Manager
	Redis    *redis.Client
	Events   events.Publisher
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(d.Cfg.GlobalRateLimit, time.Minute))
	r.Use(middleware.Metrics)
	if d.Cfg.TracingEnabled {
		r.Use(middleware.Tracing("relief-gateway"))
	}

	sessionMW := middleware.NewSessionMiddleware(d.Cfg.JWTSecret, d.Sessions)
	r.Use(sessionMW.Attach)

	loginLimiter := middleware.NewRedisRateLimiter(d.Redis)
	loginLimit := loginLimiter.Middleware(middleware.RateLimitConfig{
		Limit:  d.Cfg.LoginRateLimit,
		Window: d.Cfg.LoginRateWindow,
		KeyFn:  middleware.KeyByIP,
	})

	authHandler := handlers.NewAuthHandler(d.Relief, d.Sessions, d.Cfg.JWTSecret, d.Events, d.Log)
	victimHandler := handlers.NewVictimHandler(d.Relief, d.Geocoder, d.Log)
	volunteerHandler := handlers.NewVolunteerHandler(d.Relief, d.Geocoder, d.Log)
	orgHandler := handlers.NewOrganizationHandler(d.Relief, d.Log)
	donorHandler := handlers.NewDonorHandler(d.Relief, d.Log)
	adminHandler := handlers.NewAdminHandler(d.Relief, d.Events, d.Log)

	readinessCheckers := []handlers.ReadinessChecker{
		handlers.NewHTTPReadinessChecker("relief-backend", d.Cfg.ReliefServiceURL+"/healthz"),
	}
	if d.Redis != nil {
		readinessCheckers = append(readinessCheckers, handlers.NewRedisReadinessChecker(d.Redis))
	}
	readiness := handlers.NewReadinessHandler(readinessCheckers...)

	r.Get("/healthz", readiness.Healthz)
	r.Get("/readyz", readiness.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", authHandler.Login)
		r.With(loginLimit).Post("/organization/login", authHandler.OrganizationLogin)
		r.With(loginLimit).Post("/admin/login", authHandler.AdminLogin)
		r.Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.With(sessionMW.Protected).Get("/dashboard", authHandler.Dashboard)
	})

	r.Route("/api/victim", func(r chi.Router) {
		r.Use(sessionMW.Protected)
		r.Post("/requests", victimHandler.CreateRequest)
		r.Get("/requests", victimHandler.ListOwnRequests)
		r.Post("/requests/{timestamp}/cancel", victimHandler.CancelRequest)
	})

	r.Route("/api/volunteer", func(r chi.Router) {
		r.Use(sessionMW.Protected)
		r.Put("/location", volunteerHandler.UpdateLocation)
		r.Get("/requests/nearby", volunteerHandler.Nearby)
		r.Post("/requests/{victimID}/{timestamp}/verify", volunteerHandler.VerifyRequest)
		r.Post("/requests/{victimID}/{timestamp}/status", volunteerHandler.UpdateStatus)
	})

	r.Route("/api/organization", func(r chi.Router) {
		r.Use(sessionMW.OrganizationOnly)
		r.Get("/requests", orgHandler.ListRequests)
		r.Post("/requests/{victimID}/{timestamp}/assign", orgHandler.AssignVolunteer)
		r.Post("/requests/{victimID}/{timestamp}/approve", orgHandler.ApproveRequest)
		r.Get("/volunteers", orgHandler.ListVolunteers)
		r.Post("/bundles", orgHandler.CreateBundle)
		r.Get("/bundles", orgHandler.ListBundles)
		r.Post("/bundles/{bundleID}/distribute", orgHandler.DistributeBundle)
		r.Get("/donations", orgHandler.ListDonations)
	})

	r.Route("/api/donor", func(r chi.Router) {
		r.Use(sessionMW.Protected)
		r.Post("/donations", donorHandler.Donate)
		r.Get("/donations", donorHandler.ListOwnDonations)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(sessionMW.AdminOnly)
		r.Get("/users", adminHandler.ListUsers)
		r.Put("/users/{email}", adminHandler.UpdateUser)
		r.Delete("/users/{email}", adminHandler.DeleteUser)
		r.Post("/maintenance/clear-database", adminHandler.ClearDatabase)
		r.Post("/maintenance/clear-help-requests", adminHandler.ClearHelpRequests)
		r.Post("/maintenance/clear-volunteer-locations", adminHandler.ClearVolunteerLocations)
		r.Post("/maintenance/clear-supply-bundles", adminHandler.ClearSupplyBundles)
		r.Post("/maintenance/clear-donations", adminHandler.ClearDonations)
	})

	return r
}
