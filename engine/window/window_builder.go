package window

import "github.com/Carmen-Shannon/oxy-postpass/common"

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options. Zero values keep the default.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title.
//
// Parameters:
//   - title: the title displayed in the title bar
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = common.Coalesce(title, w.title)
	}
}

// WithSize sets the initial window size in screen coordinates. The size is clamped to the
// size limits.
//
// Parameters:
//   - width, height: the initial size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = common.Coalesce(width, w.width)
		w.height = common.Coalesce(height, w.height)
	}
}

// WithMinSize sets the smallest size the user can resize the window to.
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = common.Coalesce(width, w.minWidth)
		w.minHeight = common.Coalesce(height, w.minHeight)
	}
}

// WithMaxSize sets the largest size the user can resize the window to.
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = common.Coalesce(width, w.maxWidth)
		w.maxHeight = common.Coalesce(height, w.maxHeight)
	}
}
