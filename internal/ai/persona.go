package ai

import _ "embed"

// PersonaPrompt is the tutoring persona sent as the system instruction on
// every Generate call. Opaque configuration as far as the controller is
// concerned.
//
//go:embed persona.txt
var PersonaPrompt string
