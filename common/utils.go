package common

// Coalesce returns the first value that is not the zero value of T, or the zero value
// when every value is zero. Callers list overrides first, e.g. a CLI flag before the
// config file value it replaces.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
