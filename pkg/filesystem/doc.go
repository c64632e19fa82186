// Package filesystem provides filesystem implementations for envdeploy.
//
// This package contains implementations of the types.FS interface,
// the OS filesystem used for real deploys and an afero-backed one used by
// tests.
package filesystem
