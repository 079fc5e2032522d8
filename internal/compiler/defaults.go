package compiler

import "github.com/vk/livespan/internal/fragment"

// Defaults returns the built-in compilers.
func Defaults() []fragment.Compiler {
	return []fragment.Compiler{NewHCL(), NewStarlark(), NewTemplate()}
}
