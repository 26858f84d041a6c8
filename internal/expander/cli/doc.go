// Package cli implements the expander command line.
package cli
