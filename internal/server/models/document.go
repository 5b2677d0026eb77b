package models

import "time"

// Proof asserts the digest of a stored document.
type Proof struct {
	Type            string    `json:"type"`
	MimeType        string    `json:"mimeType"`
	DigestAlgorithm string    `json:"digestAlgorithm"`
	DigestValue     string    `json:"digestValue"`
	Created         time.Time `json:"created"`
}

// Document is the response to a successful upload and the metadata view of
// a stored object.
type Document struct {
	ID    string `json:"id"`
	Proof Proof  `json:"proof"`
}
