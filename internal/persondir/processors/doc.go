// Package processors holds the persondir.Processor implementations and the Spec
// factory used to build a chain from configuration.
//
// Replacement strings accept $n and ${name} group references and backslash escapes.
package processors
