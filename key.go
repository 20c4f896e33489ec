package formsaver

import "strings"

// Key defaults.
const (
	DefaultFallbackKey   = "form-saver"
	DefaultAutoKeyPrefix = "form:"
)

// LocationProvider reports the current navigation location (a URL path).
type LocationProvider interface {
	Location() string
}

// LocationFunc adapts a function to LocationProvider.
type LocationFunc func() string

func (f LocationFunc) Location() string {
	if f == nil {
		return ""
	}
	return f()
}

// resolveKey picks the storage key: an explicit key wins, then an auto key
// built from the location, then the fallback. Without a location provider
// auto keys are disabled.
func resolveKey(settings Settings, location LocationProvider, prefix, fallback string) string {
	if key := settings.KeyValue(); key != "" {
		return key
	}
	if settings.autoKey() && location != nil {
		loc := strings.TrimSpace(location.Location())
		if loc == "" {
			loc = "/"
		}
		return prefix + loc
	}
	return fallback
}
