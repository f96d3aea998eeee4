// Package builtin embeds the YAML signature files via go:embed.
package builtin

import "embed"

//go:embed *.yaml
var builtinSignatures embed.FS

// FS returns the embedded filesystem containing built-in signatures.
func FS() embed.FS {
	return builtinSignatures
}
