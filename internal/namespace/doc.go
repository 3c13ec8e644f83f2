// Package namespace keeps the module tree of one compiled package: modules,
// their declarations, the method registry and the cursor that points at the
// module currently being checked.
//
// Module paths are relative to the package root and never contain the
// package name. Absolute paths, used for visibility questions, always start
// with it.
package namespace
