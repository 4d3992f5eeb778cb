// Package pod provides a client for Linked Data Platform (LDP) pods such as
// Solid servers. A pod is addressed by its base URL; containers live at
// <pod>/<name>/ and resources at <pod>/<container>/<name>.
//
// Resources hold an ordered list of single-line text items (see package
// lines). Client exposes strict, error-returning operations: EnsureContainer,
// Write, Read and Update. Update is a read followed by a write of the old items
// plus the new ones; the protocol has no partial updates, so two concurrent
// updates of the same resource can lose data unless WithConditionalUpdates or
// WithResourceLocking is enabled.
//
// Lenient wraps a Client with the best-effort behaviour expected by polling
// agents: failures are logged and turned into empty reads or no-op writes.
package pod
