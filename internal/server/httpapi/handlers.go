package httpapi

import (
	"mime"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/dmitrijs2005/docstore/internal/server/auth"
	"github.com/dmitrijs2005/docstore/internal/server/endpoints"
	"github.com/dmitrijs2005/docstore/internal/server/ingest"
	"github.com/dmitrijs2005/docstore/internal/server/models"
	"github.com/dmitrijs2005/docstore/internal/server/objectstore"
	"github.com/gin-gonic/gin"
)

const corsAllowMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"

// Handlers serves the document routes of every endpoint.
type Handlers struct {
	store   *objectstore.Store
	authz   auth.Authorizer
	baseURI string
	log     logging.Logger
}

var _ endpoints.Binder = (*Handlers)(nil)

// NewHandlers creates the handlers. An empty baseURI derives document ids
// from the scheme and host of each request.
func NewHandlers(store *objectstore.Store, authz auth.Authorizer, baseURI string, log logging.Logger) *Handlers {
	if authz == nil {
		authz = auth.OwnerPolicy{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Handlers{
		store:   store,
		authz:   authz,
		baseURI: strings.TrimRight(baseURI, "/"),
		log:     log.With("module", "httpapi"),
	}
}

func (h *Handlers) Upload(ep *endpoints.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := auth.ActorFromContext(ctx)
		if err := h.authz.Authorize(ctx, actor, auth.ActionCreate, nil); err != nil {
			abortWithError(c, h.log, err)
			return
		}

		obj, err := ep.Pipeline.Ingest(ctx, ingest.Request{
			ContentType:   c.GetHeader("Content-Type"),
			ContentLength: c.Request.ContentLength,
			Body:          c.Request.Body,
			Owner:         actor,
		})
		if err != nil {
			abortWithError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, h.document(c, ep, obj, common.ProofType))
	}
}

func (h *Handlers) Retrieve(ep *endpoints.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		obj, err := h.store.FindByDigest(ctx, ep.Policy.Bucket, c.Param("id"), models.LiveOnly)
		if err != nil {
			abortWithError(c, h.log, err)
			return
		}
		if err := h.authz.Authorize(ctx, auth.ActorFromContext(ctx), auth.ActionAccess, obj); err != nil {
			abortWithError(c, h.log, err)
			return
		}

		c.Header("Access-Control-Allow-Origin", "*")
		switch meta := c.Query(common.MetaQueryParam); meta {
		case common.ProofType, common.LegacyProofType:
			c.JSON(http.StatusOK, h.document(c, ep, obj, meta))
			return
		}

		body, err := h.store.Open(ctx, obj.Bucket, obj.ID)
		if err != nil {
			abortWithError(c, h.log, err, "id", obj.ID)
			return
		}
		defer body.Close()

		extra := map[string]string{}
		if obj.Filename != "" {
			extra["Content-Disposition"] = mime.FormatMediaType("inline", map[string]string{"filename": obj.Filename})
		}
		c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, body, extra)
	}
}

func (h *Handlers) Preflight(*endpoints.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", corsAllowMethods)
		if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
			c.Header("Access-Control-Allow-Headers", requested)
			c.Header("Vary", "Access-Control-Request-Headers")
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handlers) Delete(ep *endpoints.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		obj, err := h.store.FindByDigest(ctx, ep.Policy.Bucket, c.Param("id"), models.LiveOnly)
		if err != nil {
			abortWithError(c, h.log, err)
			return
		}
		if err := h.authz.Authorize(ctx, auth.ActorFromContext(ctx), auth.ActionRemove, obj); err != nil {
			abortWithError(c, h.log, err)
			return
		}
		if err := h.store.Delete(ctx, obj.Bucket, obj.ID); err != nil {
			abortWithError(c, h.log, err, "id", obj.ID)
			return
		}
		h.log.Info(ctx, "document deleted", "route", ep.Route, "id", obj.ID, "digestValue", obj.DigestValue)
		c.Status(http.StatusNoContent)
	}
}

func (h *Handlers) document(c *gin.Context, ep *endpoints.Endpoint, obj *models.StoredObject, proofType string) models.Document {
	return models.Document{
		ID: h.base(c) + ep.Route + "/" + obj.DigestValue,
		Proof: models.Proof{
			Type:            proofType,
			MimeType:        obj.ContentType,
			DigestAlgorithm: obj.DigestAlgorithm,
			DigestValue:     obj.DigestValue,
			Created:         obj.Created,
		},
	}
}

func (h *Handlers) base(c *gin.Context) string {
	if h.baseURI != "" {
		return h.baseURI
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
