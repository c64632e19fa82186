// Package engine drives a deploy run.
//
// A run walks the tree deployment -> source -> environment -> manifest ->
// module depth first, in the order the collaborators give. Each visit
// returns an outcome; two notions of success are tracked:
//
//   - run-wide ok, the AND of deployment validation, every environment
//     visited and the absence of unknown requested names. It gates the
//     environment and deployment purges.
//   - environment ok, the outcome of one environment's own module work.
//     It gates type generation for that environment only.
//
// The write lock is held for the traversal and the deployment purge. The
// post-deploy hook runs afterwards, once, whatever happened, unless the
// lock could not be taken.
package engine
