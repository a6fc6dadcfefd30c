// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time so validation works regardless of the
// working directory or installation location.
package schemasassets

import _ "embed"

// ConfigSchema is the embedded configuration JSON schema.
//
//go:embed config.schema.json
var ConfigSchema []byte
