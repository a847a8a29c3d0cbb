package config

// GetAuthSkipperPaths returns a list of paths to skip authentication for
func GetAuthSkipperPaths() []string {
	// Liveness probe only; every back-office route is authenticated
	return []string{"/health"}
}
