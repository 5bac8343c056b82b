// Package ui implements the interactive watch view using bubbletea's Elm
// architecture.
//
// The view is presentation only: it renders the entries derived by the
// download cache and re-derives on a timer, the same cadence the background
// pollers use. Typing in the search box filters and groups the listing
// without any network traffic; admins can flip between their own downloads
// and the all-users listing.
//
// Keyboard navigation uses vim-style bindings (j/k, /, a, r, esc, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
