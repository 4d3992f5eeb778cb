// Package ldpapi holds the wire-level vocabulary shared by the pod client and
// the in-memory pod: media types, LDP type links and ETag matching.
package ldpapi
