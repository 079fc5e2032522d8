// Package fragment defines the contracts between the engine and the
// collaborators that compile and render fragments.
//
// Evaluation of one span is an explicit sequence of stages:
//
//	Compiler.Compile -> Program.Load -> Instance.Execute -> export
//
// Compile only sees source text. Load resolves the names the program reads
// through an Env backed by the span's read scope, and may suspend there
// until earlier statement fragments finish exporting. Execute runs the loaded
// program and returns its Output and exports. Export is done by the caller.
//
// Values crossing fragment boundaries are cty values. Components are carried
// as a capsule of ComponentType so they can be exported like any binding.
package fragment
