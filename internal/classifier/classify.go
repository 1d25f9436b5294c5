package classifier

import (
	"regexp"
	"strings"
)

// informationalPatterns match known startup/progress noise that is never an
// error, regardless of what keywords it happens to contain (§4.6 step 1).
var informationalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^INFO:`),
	regexp.MustCompile(`Uvicorn running on`),
	regexp.MustCompile(`Installed \d+ packages`),
	regexp.MustCompile(`Downloading .*\(`),
}

// extractionPatterns are tried in order; the first capturing match wins
// (§4.6 step 2). Each has a single capture group holding the extracted
// message, or matches the whole line when there is nothing to strip.
var extractionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ERROR:\s*(.+)`),
	regexp.MustCompile(`Error:\s*(.+)`),
	regexp.MustCompile(`Exception:\s*(.+)`),
	regexp.MustCompile(`(Missing required.+)`),
	regexp.MustCompile(`(.*API key.+)`),
	regexp.MustCompile(`(Please enter your .+)`),
	regexp.MustCompile(`Child exited:\s*(.+)`),
	regexp.MustCompile(`(Failed to .+)`),
	regexp.MustCompile(`(Unable to .+)`),
	regexp.MustCompile(`(Cannot .+)`),
}

// criticalKeywords are scanned for when no extraction pattern fires.
var criticalKeywords = []string{
	"killed", "crashed", "terminated", "refused", "timeout", "unauthorized", "forbidden",
}

// keywordFamilies, in classification priority order, per §4.6 step 3.
var keywordFamilies = []struct {
	typ      ErrorType
	keywords []string
}{
	{TypeAuth, []string{"api key", "token", "password", "unauthorized", "forbidden", "401", "403"}},
	{TypeConnection, []string{"connection", "network", "refused", "timeout", "socket", "mcperror"}},
	{TypeResource, []string{"memory", "killed", "137", "sigkill", "oom"}},
	{TypeDependency, []string{"package", "install", "module", "import"}},
	{TypeConfig, []string{"missing", "required", "invalid"}},
}

// Line classifies a single stdout/stderr line. ok is false when the line is
// informational and carries no error.
func Line(raw string) (Record, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Record{}, false
	}
	for _, pat := range informationalPatterns {
		if pat.MatchString(trimmed) {
			return Record{}, false
		}
	}

	message, found := extractMessage(trimmed)
	if !found {
		return Record{}, false
	}

	return Record{Message: message, Type: classify(message)}, true
}

func extractMessage(line string) (string, bool) {
	for _, pat := range extractionPatterns {
		if m := pat.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[len(m)-1]), true
		}
	}
	lower := strings.ToLower(line)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return line, true
		}
	}
	return "", false
}

func classify(message string) ErrorType {
	lower := strings.ToLower(message)
	for _, family := range keywordFamilies {
		for _, kw := range family.keywords {
			if strings.Contains(lower, kw) {
				return family.typ
			}
		}
	}
	return TypeRuntime
}
