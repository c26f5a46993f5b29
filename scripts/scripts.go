// Package scripts embeds the Risor scripts shipped with worldlens.
package scripts

import "embed"

// FS holds the validation scripts, rooted so that paths read
// "validate/world.risor".
//
//go:embed validate/*.risor
var FS embed.FS
