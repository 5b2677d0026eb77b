// Package cli provides the docstore command-line client.
//
// Commands mirror the server routes: upload stores a file or stdin,
// get writes the stored bytes, proof prints the proof document and delete
// removes a document. token signs a bearer token for a user id with the
// server's secret, which is how development setups obtain an identity.
//
// Settings come from defaults, an optional JSON file (--config) and then
// flags, in that order of precedence.
package cli
