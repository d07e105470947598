// Package prompt renders the prompts sent to the language model.
//
// Templates are embedded in the binary and parsed once. A directory of
// *.tmpl files can be layered on top to replace any of the named templates
// without rebuilding.
package prompt
