package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/docstore/internal/server/models"
)

// Upload describes one document to send.
type Upload struct {
	Body        io.Reader
	ContentType string
	// Size is the body length, or -1 when unknown.
	Size int64
	// Filename switches the upload to a multipart form carrying one file.
	Filename string
}

type Client interface {
	Upload(ctx context.Context, route string, u Upload) (*models.Document, error)
	Download(ctx context.Context, route, digestValue string, w io.Writer) (contentType string, err error)
	Proof(ctx context.Context, route, digestValue string) (*models.Document, error)
	Delete(ctx context.Context, route, digestValue string) error
	Ping(ctx context.Context) error
}
