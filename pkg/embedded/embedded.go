package embedded

import (
	_ "embed"
)

// Default ensemble library, used when ENSEMBLE_CONFIG is not set
//
//go:embed data/ensembles.yaml
var EnsemblesYAML []byte
