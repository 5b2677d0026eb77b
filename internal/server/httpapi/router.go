// Package httpapi exposes the document endpoints over HTTP.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/dmitrijs2005/docstore/internal/server/endpoints"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	Registry  *endpoints.Registry
	Handlers  *Handlers
	SecretKey []byte
	// Metrics registry; /metrics is not served when nil.
	Prometheus *prometheus.Registry
	Logger     logging.Logger
}

// NewRouter builds the gin engine serving every registered endpoint plus
// /healthz and /metrics.
func NewRouter(opts RouterOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	if opts.Prometheus != nil {
		r.Use(NewMetrics(opts.Prometheus).Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Prometheus, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	docs := r.Group("", Authenticate(opts.SecretKey, log))
	opts.Registry.Register(docs, opts.Handlers)
	return r
}
