// Package configs provides embedded configuration templates for docqa.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they ship with every distribution of the binary.
//
// Configuration hierarchy (see internal/config Load()):
//  1. Hardcoded defaults (internal/config NewConfig())
//  2. User config (~/.config/docqa/config.yaml)
//  3. Project config (.docqa.yaml)
//  4. Environment variables (DOCQA_*)
package configs

import _ "embed"

// ProjectConfigTemplate is the annotated template for project-level
// configuration. 'docqa init' writes it to .docqa.yaml at the project
// root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
