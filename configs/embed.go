// Package configs provides embedded configuration templates for kbsearch.
//
// Templates are embedded at build time with //go:embed so they ship in
// every distribution. 'kbsearch config init' writes ProjectConfigTemplate
// as .kbsearch.yaml; see internal/config for the load order.
package configs

import _ "embed"

// ProjectConfigTemplate is the annotated .kbsearch.yaml template.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
