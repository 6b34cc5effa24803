// Package views holds the data behind the console's list screens. Each view
// owns its data, refetches it through Reload after a successful mutation and
// keeps its previous contents when a request fails.
package views
