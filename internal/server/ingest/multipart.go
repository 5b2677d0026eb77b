package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/server/models"
	"github.com/dmitrijs2005/docstore/internal/server/objectstore"
	"github.com/dmitrijs2005/docstore/internal/streamx"
)

// multipartState collects the boundary conditions seen while parsing. They
// are resolved only after the whole body has been drained.
type multipartState struct {
	parts  int64
	files  int64
	fields int64
	// truncatedFields counts field values cut at FieldSize.
	truncatedFields int64

	mimeFailed   bool
	tooManyParts bool
	tooManyFiles bool
	tooManyField bool
	truncated    bool

	stored *written
}

// verdict applies the fixed precedence order to the recorded conditions.
func (s *multipartState) verdict() error {
	switch {
	case s.mimeFailed:
		return common.ErrUnsupportedContentType
	case s.tooManyParts:
		return common.ErrTooManyParts
	case s.tooManyFiles:
		return common.ErrTooManyFiles
	case s.tooManyField:
		return common.ErrTooManyFields
	case s.files == 0:
		return common.ErrNoFilesPresent
	case s.files > 1:
		return common.ErrMultipleFilesNotSupported
	case s.truncated:
		return common.ErrFileTooLarge
	case s.stored == nil:
		return common.ErrNoFilesPresent
	}
	return nil
}

func (p *Pipeline) ingestMultipart(ctx context.Context, req Request, boundary string) (*models.StoredObject, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing multipart boundary", common.ErrMalformedRequest)
	}

	limits := p.policy.Limits
	state := &multipartState{}
	mr := multipart.NewReader(req.Body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedRequest, err)
		}

		if err := p.handlePart(ctx, state, part, req.Owner, limits); err != nil {
			_ = part.Close()
			return nil, err
		}
		if _, err := streamx.Drain(part); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedRequest, err)
		}
		_ = part.Close()
	}

	if state.truncatedFields > 0 {
		p.log.Info(ctx, "multipart field values truncated", "count", state.truncatedFields, "field_size", limits.FieldSize)
		p.metrics.truncatedFields(p.policy.Name, state.truncatedFields)
	}

	if err := state.verdict(); err != nil {
		if state.stored != nil {
			p.log.Info(ctx, "multipart upload rejected", "id", state.stored.obj.ID, "reason", err)
		}
		return nil, err
	}
	return p.finalize(ctx, state.stored)
}

// handlePart consumes one part. Parts past a limit, disallowed files and
// extra files are left for the caller to drain.
func (p *Pipeline) handlePart(ctx context.Context, state *multipartState, part *multipart.Part, owner string, limits Limits) error {
	state.parts++
	if exceeds(state.parts, limits.Parts) {
		state.tooManyParts = true
		return nil
	}

	filename, isFile := partFilename(part)
	if !isFile {
		state.fields++
		if exceeds(state.fields, limits.Fields) {
			state.tooManyField = true
			return nil
		}
		// Field values are not kept. A value longer than FieldSize is
		// recorded as truncated and its tail is drained with the part.
		value := streamx.NewLimitedReader(part, limits.FieldSize)
		if _, err := streamx.Drain(value); err != nil {
			return fmt.Errorf("%w: %v", common.ErrMalformedRequest, err)
		}
		if value.Truncated {
			state.truncatedFields++
		}
		return nil
	}

	state.files++
	if exceeds(state.files, limits.Files) {
		state.tooManyFiles = true
		return nil
	}
	mediaType, _ := MediaType(part.Header.Get("Content-Type"))
	if !p.policy.Allows(mediaType) {
		state.mimeFailed = true
		return nil
	}
	if state.stored != nil || state.mimeFailed {
		// Only the first file is kept; the rest only count.
		return nil
	}

	src := &sourceReader{r: part}
	body := streamx.NewLimitedReader(src, limits.FileSize)
	w, err := p.write(ctx, body, objectstore.WriteOptions{
		Bucket:      p.policy.Bucket,
		ContentType: mediaType,
		Filename:    filename,
		Owner:       owner,
	})
	if err != nil {
		return src.blame(err)
	}
	state.stored = w
	state.truncated = state.truncated || body.Truncated
	return nil
}

// partFilename reports the file name of a part and whether the part is a
// file at all; a filename parameter marks a file even when it is empty.
func partFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	if _, ok := params["filename"]; !ok {
		return "", false
	}
	return part.FileName(), true
}
