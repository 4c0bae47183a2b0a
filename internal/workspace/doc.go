// Package workspace resolves the project directories a run works against:
// the work path holding the sources, the enclosing repository root, and the
// output directory that receives the assembled tree.
package workspace
