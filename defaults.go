package keyvarango

// coalesce picks def for an unset option, i.e. one equal to T's zero value.
// Interface-typed options such as Logger and Hooks compare against nil.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
