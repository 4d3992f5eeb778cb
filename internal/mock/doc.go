/*
Package mock groups generated mocks used by unit tests.

Mocks of interfaces defined in this module live in a directory mirroring the
package they mock (pkg/pod -> ./pod) and use the mock_* package naming
convention. Regenerate them with `go generate ./...`.
*/
package mock
