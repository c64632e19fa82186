// Package types defines the interfaces the deploy engine consumes from its
// collaborators (Deployment, Source, Environment, Manifest, Module) together
// with the small value types they exchange.
//
// The engine only depends on this package; concrete git-backed
// implementations live in pkg/deployment, pkg/source, pkg/environment,
// pkg/manifest and pkg/module.
package types
