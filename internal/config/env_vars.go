package config

import "os"

const (
	apiBaseURLVar      = "SUPREME_API_BASE_URL"
	authURLVar         = "SUPREME_AUTH_URL"
	personasBaseURLVar = "SUPREME_PERSONAS_BASE_URL"
)

// DefaultAPIBaseURL returns the credits API base URL from the environment,
// falling back to the given default.
func DefaultAPIBaseURL(fallback string) string {
	return GetEnv(apiBaseURLVar, fallback)
}

// DefaultAuthURL returns the authentication endpoint base URL from the
// environment, falling back to the given default.
func DefaultAuthURL(fallback string) string {
	return GetEnv(authURLVar, fallback)
}

// DefaultPersonasBaseURL returns the personas API base URL from the
// environment, falling back to the given default.
func DefaultPersonasBaseURL(fallback string) string {
	return GetEnv(personasBaseURLVar, fallback)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
