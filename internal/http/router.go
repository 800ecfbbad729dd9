// Package httpapi wires the Gin transport to the application services and
// installs the cross-cutting middleware: tracing, correlation ids, caller
// identity, redacting access logs, panic recovery, body limits, compression,
// metrics, idempotency, rate limiting, CORS and security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/agristream/livescript/docs"
	"github.com/agristream/livescript/internal/config"
	"github.com/agristream/livescript/internal/http/handlers"
	"github.com/agristream/livescript/internal/http/middleware"
	"github.com/agristream/livescript/internal/knowledge"
	"github.com/agristream/livescript/internal/llm"
	"github.com/agristream/livescript/internal/materials"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/services"
)

// Deps holds the external collaborators the services are built from. Nil
// optional fields disable the matching feature: no LLM means generation and
// compliance answer 503, no Transcriber means transcription answers 503, no
// Publisher means generated scripts are not announced.
type Deps struct {
	DB          *gorm.DB
	LLM         llm.Client
	Searcher    knowledge.Searcher
	Importer    services.PageFetcher
	Videos      materials.Searcher
	Transcriber materials.Transcriber
	Publisher   services.EventPublisher
}

// corsHeaders are the request headers browsers may send cross-origin.
var corsHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.UserIDHeader, middleware.HeaderIdempotencyKey, "If-None-Match",
}

// corsExpose are the response headers browsers may read.
var corsExpose = []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}

// NewServices builds the application services from d and cfg.
func NewServices(d Deps, cfg config.Config) handlers.Services {
	kb := &services.KnowledgeService{
		DB:       d.DB,
		Searcher: d.Searcher,
		Importer: d.Importer,
		TopK:     cfg.Knowledge.TopK,
		MinScore: cfg.Knowledge.MinScore,
	}
	videos := d.Videos
	if videos == nil {
		videos = materials.NewMockSearcher()
	}
	return handlers.Services{
		Products:  &services.ProductService{DB: d.DB},
		Templates: &services.TemplateService{DB: d.DB},
		Scripts:   services.NewScriptService(d.DB),
		Generator: &services.GenerationService{
			DB:          d.DB,
			LLM:         d.LLM,
			References:  kb,
			Publisher:   d.Publisher,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		},
		Compliance: &services.ComplianceService{
			DB:             d.DB,
			LLM:            d.LLM,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.ComplianceTemperature,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
		Knowledge: kb,
		Materials: &services.MaterialService{DB: d.DB, Searcher: videos, Transcriber: d.Transcriber},
	}
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID and UserID: correlation and caller identity
//  3. RedactingLogger: access log plus request-scoped logger
//  4. Recovery: after the logger so panics carry request fields
//  5. Body size limit and gzip (never on the event stream or /metrics)
//  6. Metrics
//  7. Idempotency validator, before the limiter so replays bypass it
//  8. Rate limiter (per user, else per IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath
	generatePath := joinPath(apiBase, "/scripts/generate")
	compliancePath := joinPath(apiBase, "/scripts/:id/compliance")

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	r.Use(middleware.RequestID(), middleware.UserID())

	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		QuietPaths:  []string{"/health", "/metrics"},
	}))

	r.Use(middleware.Recovery())

	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{generatePath, "/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Routes: []string{compliancePath},
		},
		func(ctx context.Context, userID, scriptID, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, d.DB, userID, scriptID, key, now)
			switch {
			case errors.Is(err, repo.ErrNotFound):
				return false, nil
			case err != nil:
				return false, err
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header, so plain clients see it too.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	var pinger handlers.Pinger
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			pinger = sqlDB
		}
	}
	r.GET("/health", handlers.Health(pinger))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(NewServices(d, cfg))

	api := groupWithPrefix(r, apiBase)
	{
		// Products
		api.POST("/products", h.CreateProduct)
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)

		// Style templates
		api.POST("/templates", h.CreateTemplate)
		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:id", h.GetTemplate)
		api.PUT("/templates/:id", h.UpdateTemplate)
		api.DELETE("/templates/:id", h.DeleteTemplate)

		// Scripts
		api.POST("/scripts/generate", h.GenerateScript)
		api.GET("/scripts", h.ListScripts)
		api.GET("/scripts/:id", h.GetScript)
		api.PUT("/scripts/:id", h.UpdateScript)
		api.DELETE("/scripts/:id", h.DeleteScript)
		api.GET("/scripts/:id/export", h.ExportScript)
		api.POST("/scripts/:id/compliance", h.CheckCompliance)

		// Knowledge base
		api.POST("/knowledge/collections", h.CreateCollection)
		api.GET("/knowledge/collections", h.ListCollections)
		api.GET("/knowledge/collections/:id", h.GetCollection)
		api.DELETE("/knowledge/collections/:id", h.DeleteCollection)
		api.POST("/knowledge/collections/:id/documents", h.AddDocument)
		api.GET("/knowledge/collections/:id/documents", h.ListDocuments)
		api.POST("/knowledge/collections/:id/import", h.ImportDocument)
		api.DELETE("/knowledge/documents/:id", h.DeleteDocument)
		api.POST("/knowledge/search", h.SearchKnowledge)

		// Materials
		api.GET("/materials/search", h.SearchMaterials)
		api.POST("/materials", h.CollectMaterial)
		api.GET("/materials", h.ListMaterials)
		api.GET("/materials/:id", h.GetMaterial)
		api.DELETE("/materials/:id", h.DeleteMaterial)
		api.POST("/materials/:id/transcribe", h.TranscribeMaterial)
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath prefixes a route with the API base path.
func joinPath(base, route string) string {
	if base == "" || base == "/" {
		return route
	}
	return base + route
}
