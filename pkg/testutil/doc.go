// Package testutil provides utilities for testing envdeploy components.
//
// Key components:
//   - Mock collaborators (MockDeployment, MockSource, MockEnvironment,
//     MockManifest, MockModule) that record every call in a shared CallLog
//   - Git fixtures that build throwaway repositories in t.TempDir()
//   - CaptureLogs for asserting on structured log output
//
// All test data should be defined inline, not in external files.
package testutil
