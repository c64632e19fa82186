// Package module implements the module kinds an environment can declare:
// git checkouts, registry releases and local, unmanaged directories.
//
// Every kind satisfies types.Module. Modules are built from a Spec, which
// the manifest package produces when it parses a Deployfile.
package module
