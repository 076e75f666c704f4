package myinvois

import "strings"

// streetTokens is the fixed vocabulary used to re-split run-on address
// strings that arrive without commas. Upstream spreadsheets frequently put
// "No 12 Jalan Ampang Taman Desa" in a single cell; each token starts a new
// address line.
var streetTokens = []string{
	"JALAN", "LORONG", "PERSIARAN", "LEBUHRAYA", "LEBUH", "TAMAN",
	"KAMPUNG", "BANDAR", "DESA", "SEKSYEN", "BLOK", "TINGKAT", "WISMA",
	"MENARA", "PLAZA",
}

const maxAddressLines = 3

// SplitAddressLines breaks one upstream address string into postal address
// lines. Comma-separated input splits on commas; otherwise the street-token
// vocabulary is applied. Duplicate lines are removed, and everything past the
// third line is folded into it (the schema accepts at most three).
func SplitAddressLines(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var parts []string
	if strings.Contains(line, ",") {
		for _, p := range strings.Split(line, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	} else {
		parts = splitOnStreetTokens(line)
	}

	parts = dedupeLines(parts)
	if len(parts) > maxAddressLines {
		folded := strings.Join(parts[maxAddressLines-1:], " ")
		parts = append(parts[:maxAddressLines-1], folded)
	}
	return parts
}

// splitOnStreetTokens starts a new line at each vocabulary word, keeping the
// word with the text that follows it.
func splitOnStreetTokens(line string) []string {
	words := strings.Fields(line)
	var parts []string
	var current []string
	for _, w := range words {
		if isStreetToken(w) && len(current) > 0 {
			parts = append(parts, strings.Join(current, " "))
			current = current[:0]
		}
		current = append(current, w)
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	return parts
}

func isStreetToken(word string) bool {
	w := strings.ToUpper(strings.Trim(word, ".,"))
	for _, t := range streetTokens {
		if w == t {
			return true
		}
	}
	return false
}

// dedupeLines removes exact duplicates (case-insensitive), keeping order.
func dedupeLines(parts []string) []string {
	seen := make(map[string]struct{}, len(parts))
	out := parts[:0]
	for _, p := range parts {
		key := strings.ToUpper(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
