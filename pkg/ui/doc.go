// Package ui prints colored status lines, per-round harvest progress and
// optional desktop notifications for the command line.
package ui
