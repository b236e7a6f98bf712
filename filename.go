package harvester

import "strings"

// DefaultSuffix is appended to every output filename
const DefaultSuffix = "_comments.csv"

// OutputFilename derives the output file name for a query term. Surrounding
// double quotes are stripped; nothing else is escaped.
func OutputFilename(query, suffix string) string {
	return strings.Trim(query, `"`) + suffix
}
