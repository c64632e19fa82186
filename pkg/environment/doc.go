// Package environment implements git-backed environments: one checkout
// per branch of a source, with the modules its Deployfile declares.
package environment
