// Package formats registers the tabular file formats with the core registry.
// Import this package to ensure all formats are registered.
package formats

// Each format file uses init() to register its definition.
