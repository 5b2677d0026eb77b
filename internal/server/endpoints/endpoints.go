// Package endpoints resolves configured upload routes into immutable
// policies, prepares their storage containers and binds their HTTP verbs.
package endpoints

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/dmitrijs2005/docstore/internal/server/config"
	"github.com/dmitrijs2005/docstore/internal/server/digest"
	"github.com/dmitrijs2005/docstore/internal/server/ingest"
	"github.com/dmitrijs2005/docstore/internal/server/objectstore"
	"github.com/gin-gonic/gin"
)

// DefaultBucket is the container used when an endpoint names none.
const DefaultBucket = "documentServer"

// Endpoint is a registered upload route.
type Endpoint struct {
	Route    string
	Policy   ingest.Policy
	Pipeline *ingest.Pipeline
}

// Binder builds the HTTP handlers of an endpoint.
type Binder interface {
	Upload(ep *Endpoint) gin.HandlerFunc
	Retrieve(ep *Endpoint) gin.HandlerFunc
	Preflight(ep *Endpoint) gin.HandlerFunc
	Delete(ep *Endpoint) gin.HandlerFunc
}

type Registry struct {
	store     *objectstore.Store
	endpoints []*Endpoint
}

// Resolve validates one endpoint configuration and fills in defaults.
func Resolve(cfg config.EndpointConfig) (string, ingest.Policy, error) {
	route := strings.TrimRight(strings.TrimSpace(cfg.Route), "/")
	if route == "" || !strings.HasPrefix(route, "/") || strings.ContainsAny(route, ":*?#") {
		return "", ingest.Policy{}, fmt.Errorf("%w: invalid route %q", common.ErrInvalidEndpoint, cfg.Route)
	}

	policy := ingest.Policy{
		Name:            route,
		Bucket:          cfg.BucketName,
		MimeTypes:       slices.Clone(cfg.MimeTypes),
		Limits:          resolveLimits(cfg.Limits),
		DigestAlgorithm: cfg.DigestAlgorithm,
		DuplicatePolicy: ingest.DuplicatePolicy(cfg.DuplicatePolicy),
	}
	if policy.Bucket == "" {
		policy.Bucket = DefaultBucket
	}
	if policy.DigestAlgorithm == "" {
		policy.DigestAlgorithm = digest.Default
	}
	if _, err := digest.New(policy.DigestAlgorithm); err != nil {
		return "", ingest.Policy{}, fmt.Errorf("%w: route %s: %v", common.ErrInvalidEndpoint, route, err)
	}

	switch policy.DuplicatePolicy {
	case "":
		policy.DuplicatePolicy = ingest.DuplicateReject
	case ingest.DuplicateReject, ingest.DuplicateShare:
	default:
		return "", ingest.Policy{}, fmt.Errorf("%w: route %s: duplicate policy %q not supported",
			common.ErrInvalidEndpoint, route, cfg.DuplicatePolicy)
	}

	for i, mt := range policy.MimeTypes {
		policy.MimeTypes[i], _ = ingest.MediaType(mt)
	}
	return route, policy, nil
}

func resolveLimits(cfg config.LimitsConfig) ingest.Limits {
	limits := ingest.Unlimited()
	pick := func(dst *int64, v *int64) {
		if v != nil {
			*dst = *v
		}
	}
	pick(&limits.FileSize, cfg.FileSize)
	pick(&limits.Files, cfg.Files)
	pick(&limits.Fields, cfg.Fields)
	pick(&limits.Parts, cfg.Parts)
	pick(&limits.FieldSize, cfg.FieldSize)
	return limits
}

// NewRegistry resolves every endpoint and ensures its container. Any
// invalid endpoint fails the whole setup.
func NewRegistry(ctx context.Context, cfgs []config.EndpointConfig, store *objectstore.Store, log logging.Logger, metrics *ingest.Metrics) (*Registry, error) {
	if log == nil {
		log = logging.Nop()
	}
	r := &Registry{store: store}
	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		route, policy, err := Resolve(cfg)
		if err != nil {
			return nil, err
		}
		if seen[route] {
			return nil, fmt.Errorf("%w: duplicate route %s", common.ErrInvalidEndpoint, route)
		}
		seen[route] = true

		if err := store.EnsureContainer(ctx, policy.Bucket); err != nil {
			return nil, fmt.Errorf("setup endpoint %s: %w", route, err)
		}
		log.Info(ctx, "setup endpoint", "route", route, "bucket", policy.Bucket,
			"digestAlgorithm", policy.DigestAlgorithm, "duplicatePolicy", policy.DuplicatePolicy)

		r.endpoints = append(r.endpoints, &Endpoint{
			Route:    route,
			Policy:   policy,
			Pipeline: ingest.NewPipeline(store, policy, log, metrics),
		})
	}
	return r, nil
}

func (r *Registry) Endpoints() []*Endpoint {
	return r.endpoints
}

// Register binds POST {route}, and GET, OPTIONS and DELETE {route}/:id for
// every endpoint.
func (r *Registry) Register(router gin.IRouter, b Binder) {
	for _, ep := range r.endpoints {
		docPath := ep.Route + "/:id"
		router.POST(ep.Route, b.Upload(ep))
		router.GET(docPath, b.Retrieve(ep))
		router.OPTIONS(docPath, b.Preflight(ep))
		router.DELETE(docPath, b.Delete(ep))
	}
}
