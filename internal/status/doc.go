// Package status inspects repositories without modifying them.
package status
