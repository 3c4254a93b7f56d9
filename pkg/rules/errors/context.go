package errors

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"mercator-hq/pricelist/pkg/rules/ast"
)

// ExtractContext reads the rule document and renders the lines around location.
func ExtractContext(location ast.Location, contextLines int) string {
	if !location.IsValid() {
		return ""
	}

	data, err := os.ReadFile(location.File)
	if err != nil {
		return ""
	}
	return ExtractContextBytes(data, location, contextLines)
}

// ExtractContextBytes renders the lines around location from an in-memory document.
func ExtractContextBytes(data []byte, location ast.Location, contextLines int) string {
	if location.Line <= 0 {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil || location.Line > len(lines) {
		return ""
	}

	errorLine := location.Line - 1
	startLine := max(errorLine-contextLines, 0)
	endLine := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))

		if i == errorLine && location.Column > 0 {
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", location.Column-1)))
		}
	}

	return sb.String()
}

// AddContext fills the Context of every located error in ce from data.
func AddContext(ce *ConfigError, data []byte) {
	if ce == nil {
		return
	}
	for _, e := range ce.Errors {
		if e.Context == "" {
			e.Context = ExtractContextBytes(data, e.Location, 2)
		}
	}
}
