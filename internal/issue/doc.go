// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and Markdown issue cards.
//
// ActionableError carries an operation, resource, suggestions, and an
// optional issue Id. The CLI prints the short form by default and renders
// the matching card with glamour under --verbose.
package issue
