// Package git wraps the git command line for sources, environments and
// git modules. Everything runs through a Runner so tests can substitute
// scripted output; the default runner shells out to the git binary.
package git
