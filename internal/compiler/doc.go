// Package compiler provides the built-in fragment languages.
//
//   - HCL: inline expressions and statement blocks of attributes. Every
//     attribute of a block is exported, and later attributes can read earlier
//     ones.
//   - Starlark: inline expressions and statement blocks. Every global whose
//     name does not start with "_" is exported.
//   - Template: HCL templates rendered as components. Props passed at render
//     time, such as `children`, shadow scope bindings.
//
// HCL fragments and templates share the cty standard function library and a
// `component(template)` function that turns a template string into a
// component binding.
package compiler
