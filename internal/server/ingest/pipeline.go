// Package ingest turns an upload request into a finalized stored object:
// it checks the endpoint policy, streams the body into the object store
// while digesting it and resolves digest conflicts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/dmitrijs2005/docstore/internal/server/digest"
	"github.com/dmitrijs2005/docstore/internal/server/models"
	"github.com/dmitrijs2005/docstore/internal/server/objectstore"
	"github.com/dmitrijs2005/docstore/internal/streamx"
)

// shareAttempts bounds how often a share-policy upload retries when the
// digest owner disappears between the conflict and the lookup.
const shareAttempts = 3

// Request is one upload.
type Request struct {
	ContentType string
	// ContentLength is the declared body size, or -1 when unknown.
	ContentLength int64
	Body          io.Reader
	// Owner is the authenticated uploader; empty for anonymous uploads.
	Owner string
}

type Pipeline struct {
	store   *objectstore.Store
	policy  Policy
	log     logging.Logger
	metrics *Metrics
}

func NewPipeline(store *objectstore.Store, policy Policy, log logging.Logger, metrics *Metrics) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{
		store:   store,
		policy:  policy,
		log:     log.With("endpoint", policy.Name, "bucket", policy.Bucket),
		metrics: metrics,
	}
}

func (p *Pipeline) Policy() Policy { return p.policy }

// Ingest stores the request body and returns the object whose id and proof
// answer the upload. Under the share policy that may be an older object.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*models.StoredObject, error) {
	mediaType, params := MediaType(req.ContentType)

	var (
		obj *models.StoredObject
		err error
	)
	if mediaType == "multipart/form-data" {
		obj, err = p.ingestMultipart(ctx, req, params["boundary"])
	} else {
		obj, err = p.ingestSingle(ctx, req, mediaType)
	}
	p.metrics.upload(p.policy.Name, outcome(err))
	return obj, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "stored"
	case errors.Is(err, common.ErrDuplicateDocument):
		return "duplicate"
	case isClientError(err):
		return "rejected"
	default:
		return "error"
	}
}

func isClientError(err error) bool {
	for _, target := range []error{
		common.ErrUnsupportedMediaType, common.ErrUnsupportedContentType, common.ErrPayloadTooLarge,
		common.ErrTooManyParts, common.ErrTooManyFiles, common.ErrTooManyFields, common.ErrNoFilesPresent,
		common.ErrMultipleFilesNotSupported, common.ErrFileTooLarge, common.ErrMalformedRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (p *Pipeline) ingestSingle(ctx context.Context, req Request, mediaType string) (*models.StoredObject, error) {
	if !p.policy.Allows(mediaType) {
		return nil, common.ErrUnsupportedMediaType
	}
	limit := p.policy.Limits.FileSize
	if limit >= 0 && req.ContentLength > limit {
		return nil, common.ErrPayloadTooLarge
	}

	src := &sourceReader{r: req.Body}
	body := streamx.NewLimitedReader(src, limit)
	written, err := p.write(ctx, body, objectstore.WriteOptions{
		Bucket:      p.policy.Bucket,
		ContentType: mediaType,
		Owner:       req.Owner,
	})
	if err != nil {
		return nil, src.blame(err)
	}
	if body.Truncated {
		if _, err := streamx.Drain(req.Body); err != nil {
			p.log.Debug(ctx, "draining oversized body failed", "error", err)
		}
		p.log.Info(ctx, "upload exceeded size limit", "id", written.obj.ID, "limit", limit)
		return nil, common.ErrPayloadTooLarge
	}
	return p.finalize(ctx, written)
}

// sourceReader remembers a failure of the client stream, so a broken
// upload is not reported as a storage fault.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}
	return n, err
}

func (s *sourceReader) blame(err error) error {
	if s.err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedRequest, s.err)
	}
	return err
}

type written struct {
	obj         *models.StoredObject
	digestValue string
}

// write streams r into a new object while digesting it.
func (p *Pipeline) write(ctx context.Context, r io.Reader, opts objectstore.WriteOptions) (*written, error) {
	var (
		obj   *models.StoredObject
		value string
	)
	err := streamx.Fanout(ctx, r,
		func(ctx context.Context, r io.Reader) error {
			var err error
			obj, err = p.store.Write(ctx, opts, r)
			return err
		},
		func(ctx context.Context, r io.Reader) error {
			var err error
			value, err = digest.Digest(r, p.policy.DigestAlgorithm)
			return err
		},
	)
	if err != nil {
		if obj != nil {
			p.log.Warn(ctx, "upload left pending", "id", obj.ID, "error", err)
		}
		return nil, fmt.Errorf("store upload: %w", err)
	}
	p.metrics.stored(p.policy.Name, obj.Size)
	return &written{obj: obj, digestValue: value}, nil
}

// finalize claims the digest for the new object, falling back to the
// duplicate policy when a live object already owns it.
func (p *Pipeline) finalize(ctx context.Context, w *written) (*models.StoredObject, error) {
	alg := p.policy.DigestAlgorithm
	for attempt := 0; ; attempt++ {
		err := p.store.Finalize(ctx, w.obj, alg, w.digestValue)
		if err == nil {
			return w.obj, nil
		}
		if !errors.Is(err, common.ErrUniqueDigest) {
			return nil, fmt.Errorf("finalize %s: %w", w.obj.ID, err)
		}

		p.metrics.duplicate(p.policy.Name, p.policy.DuplicatePolicy)
		if p.policy.DuplicatePolicy != DuplicateShare {
			p.discard(ctx, w.obj)
			return nil, &common.DuplicateError{DigestAlgorithm: alg, DigestValue: w.digestValue}
		}

		existing, err := p.store.FindByDigest(ctx, p.policy.Bucket, w.digestValue, models.LiveOnly)
		if err == nil {
			p.discard(ctx, w.obj)
			return existing, nil
		}
		if !errors.Is(err, common.ErrorNotFound) || attempt+1 >= shareAttempts {
			return nil, fmt.Errorf("resolve shared digest: %w", err)
		}
		// The owner vanished in between; try to claim the digest again.
	}
}

// discard purges the bytes of an upload that lost its digest race.
func (p *Pipeline) discard(ctx context.Context, obj *models.StoredObject) {
	if err := p.store.Purge(ctx, nil, obj); err != nil {
		p.log.Warn(ctx, "discarding redundant upload failed", "id", obj.ID, "error", err)
	}
}
