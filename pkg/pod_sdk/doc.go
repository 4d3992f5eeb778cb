// Package pod_sdk bootstraps a pod client from environment variables.
// POD_RUNTIME_MODE selects "http" (talk to POD_URL), "mock" (an in-memory pod,
// optionally seeded from the YAML file named by POD_MOCK_SEED) or "auto", the
// default, which picks http when POD_URL is set and mock otherwise. The mock
// client exposes the same API as the HTTP one.
package pod_sdk
