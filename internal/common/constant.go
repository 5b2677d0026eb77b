package common

const (
	// AuthorizationHeaderName carries the optional bearer token of the actor.
	AuthorizationHeaderName = "Authorization"

	// MetaQueryParam selects the proof document instead of raw bytes.
	MetaQueryParam = "meta"

	// ProofType is the type of proof documents returned by the service.
	ProofType = "MessageDigest"

	// LegacyProofType is accepted as a meta selector for older clients.
	LegacyProofType = "MessageDigest2018"
)
