// Package openinference provides the embedded OpenInference attribute model.
// The YAML files follow the OTel semantic convention group format.
package openinference

import "embed"

//go:embed model
var ModelFS embed.FS
