// Package core holds the types shared across parklake: pipeline run records,
// the run-state Store contract and the catalog Adapter contract.
//
// core depends on the standard library only, so storage, engine and CLI
// packages can all import it without cycles.
package core
