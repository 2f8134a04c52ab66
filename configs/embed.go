// Package configs provides embedded configuration templates for recall.
//
// Templates are embedded at build time with //go:embed so they ship in
// every distribution, source builds included.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config (~/.config/recall/config.yaml)
//  3. Project config (.recall.yaml)
//  4. Environment variables (RECALL_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration,
// written by 'recall init --user' to ~/.config/recall/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration,
// written by 'recall init' to .recall.yaml in the current directory.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
