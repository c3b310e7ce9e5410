// Package openapi embeds the OpenAPI YAML document served at /swagger/v1/swagger.yaml.
package openapi

import _ "embed"

// YAML contains the embedded OpenAPI document.
//
//go:embed openapi.yaml
var YAML []byte
