package app

// resolveObservabilityDefaults derives the baseline metrics/healthz
// toggles from the environment. Config file pointers override these
// inside the observability controller.
func resolveObservabilityDefaults() (bool, bool) {
	return envBool("MCPDEX_METRICS_ENABLED"), envBool("MCPDEX_HEALTHZ_ENABLED")
}
