// Package output renders run summaries and source inventories.
//
// Three formats are supported: a styled terminal format built on
// lipgloss, plain text for pipes and log files, and JSON for machines.
// FormatAuto picks between the first two depending on whether the output
// is a color capable terminal.
package output
