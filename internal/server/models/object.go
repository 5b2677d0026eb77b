// Package models defines the records persisted by docstore and the
// documents it returns to clients.
package models

import "time"

// StoredObject is the metadata record of one stored byte stream. The
// bytes themselves live in a blob store under Bucket/ID.
type StoredObject struct {
	// ID is the opaque internal identifier assigned when the write starts.
	ID string
	// Bucket is the storage container the object belongs to.
	Bucket string

	DigestAlgorithm string
	// DigestValue is the unpadded base64url digest of the exact bytes.
	DigestValue string

	ContentType string
	// Filename is the uploader-supplied name, kept as metadata only.
	Filename string
	// Owner is the uploading actor; empty means publicly accessible.
	Owner string
	Size  int64

	Created time.Time
	// Valid becomes true once the digest is confirmed and recorded.
	Valid bool
	// Deleted marks the object as logically removed.
	Deleted *time.Time
}

// State reports where the object is in its lifecycle.
func (o *StoredObject) State() State {
	switch {
	case o.Deleted != nil:
		return StateDeleted
	case o.Valid:
		return StateValid
	default:
		return StatePending
	}
}

// Live reports whether the object may be served by retrieval.
func (o *StoredObject) Live() bool {
	return o.State() == StateValid
}

// State is the lifecycle state of a StoredObject.
type State string

const (
	StatePending State = "pending"
	StateValid   State = "valid"
	StateDeleted State = "deleted"
)

// Patch lists metadata fields to merge into a record. Nil fields are left
// untouched; raw bytes are never affected.
type Patch struct {
	DigestAlgorithm *string
	DigestValue     *string
	Valid           *bool
	Owner           *string
	Size            *int64
	Deleted         *time.Time
}

// FindOptions filters digest lookups.
type FindOptions struct {
	ValidOnly      bool
	ExcludeDeleted bool
}

// LiveOnly is the filter used by retrieval: valid and not deleted.
var LiveOnly = FindOptions{ValidOnly: true, ExcludeDeleted: true}
