package theme

// SetDarkBackground replaces terminal background detection for tests and
// returns a restore function.
func SetDarkBackground(dark bool) func() {
	prev := hasDarkBackground
	hasDarkBackground = func() bool { return dark }
	return func() { hasDarkBackground = prev }
}
