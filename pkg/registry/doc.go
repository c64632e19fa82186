// Package registry talks to a module registry (a Puppet Forge compatible
// API): it resolves module releases and installs release tarballs.
package registry
