// Package prompts embeds the model prompt templates.
package prompts

import "embed"

//go:embed *.txt
var FS embed.FS
