package chart

import "errors"

// ErrResolution is joined into any error produced while resolving a transition
// target path or validating chart structure (spec §7, ResolutionError).
var ErrResolution = errors.New("chart: resolution error")
