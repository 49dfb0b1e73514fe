// Package configs provides the embedded configuration template for seekd.
//
// The template is embedded at build time with //go:embed so it ships in
// every distribution. It documents all keys with their defaults and is the
// starting point for a user's config file.
package configs

import _ "embed"

// ConfigTemplate is the annotated example configuration. All values in it
// match the hardcoded defaults in internal/config.
//
//go:embed config.example.yaml
var ConfigTemplate string
