package search

import (
	"bufio"
	"strings"
)

// FlattenTables rewrites Markdown table rows as standalone facts separated
// by blank lines, so each row is retrievable on its own. Separator rows are
// dropped. Text without tables is returned unchanged.
func FlattenTables(text string) string {
	if !strings.Contains(text, "|") {
		return text
	}

	var b strings.Builder
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	wroteBlank := true // start true to avoid a leading blank
	sawTable := false

	writeFact := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if !wroteBlank {
			b.WriteByte('\n')
		}
		b.WriteString(s)
		b.WriteString("\n\n")
		wroteBlank = true
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if !wroteBlank {
				b.WriteByte('\n')
				wroteBlank = true
			}
			continue
		}

		// table row: "| ... |"
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			sawTable = true
			raw := strings.Trim(line, "|")
			cols := strings.Split(raw, "|")

			allSep := true
			cleaned := make([]string, 0, len(cols))
			for _, c := range cols {
				cell := strings.TrimSpace(c)
				if cell != "" {
					cleaned = append(cleaned, cell)
				}
				tmp := strings.ReplaceAll(cell, ":", "")
				tmp = strings.ReplaceAll(tmp, "-", "")
				if strings.TrimSpace(tmp) != "" {
					allSep = false
				}
			}
			if allSep || len(cleaned) == 0 {
				continue
			}
			writeFact(strings.Join(cleaned, " "))
			continue
		}

		// ordinary lines keep their paragraph grouping
		b.WriteString(line)
		b.WriteByte('\n')
		wroteBlank = false
	}
	if err := sc.Err(); err != nil || !sawTable {
		return text
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
