package utils

// ToPtr returns a pointer to the given value
func ToPtr[T any](v T) *T {
	return &v
}

// IsTrue reports whether a *bool is non-nil and true
func IsTrue(b *bool) bool {
	return b != nil && *b
}
