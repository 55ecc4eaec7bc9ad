// Package pathutils expands home-relative paths and normalizes discovery roots.
package pathutils
