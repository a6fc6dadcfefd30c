package provider

import "github.com/alessio/shellescape"

// LatestDeleteMarker stands in for a delete marker's version id in previews.
// The id is only resolved when the unhide runs.
const LatestDeleteMarker = "<latest-delete-marker>"

// ShellQuote returns s quoted so that a POSIX shell reads it back as one word.
func ShellQuote(s string) string {
	return shellescape.Quote(s)
}

// JoinCommand renders argv as a single shell-quoted command line.
func JoinCommand(argv ...string) string {
	return shellescape.QuoteCommand(argv)
}
