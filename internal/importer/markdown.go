package importer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Confidence scores for markdown findings.
const (
	// ConfidenceFencedKnown is an assignment in a code fence whose value
	// matches a known token format.
	ConfidenceFencedKnown = 0.95
	// ConfidenceToken is a known token format outside an assignment.
	ConfidenceToken = 0.8
	// ConfidenceFencedAssignment is a secret-looking assignment in a code
	// fence with an unrecognized value.
	ConfidenceFencedAssignment = 0.6
)

var (
	assignment  = regexp.MustCompile(`^\s*(?:export\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*[=:]\s*["']?([^"'\s#]+)["']?`)
	secretNames = regexp.MustCompile(`(?i)(KEY|TOKEN|SECRET|PASSWORD|PASSWD|PWD|CREDENTIAL|AUTH)`)
	placeholder = regexp.MustCompile(`(?i)^(?:<.*>|x{3,}|\*{3,}|\.{3,}|your[_-].*|changeme|example|todo|none|null|true|false|\$\{?[A-Z_]+\}?)$`)
)

// ScanMarkdown looks for secrets in a markdown document: KEY=value
// assignments inside code fences, and known token formats anywhere. Repeated
// sightings of one value are merged by AggregateFindings.
func ScanMarkdown(r io.Reader, file string) ([]MarkdownFinding, error) {
	var (
		findings []MarkdownFinding
		inFence  bool
	)

	add := func(f MarkdownFinding) {
		findings = append(findings, f)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		trimmed := strings.TrimSpace(text)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}

		if inFence {
			if m := assignment.FindStringSubmatch(text); m != nil {
				name, value := m[1], m[2]
				if placeholder.MatchString(value) {
					continue
				}
				if p := tokenProvider(value); p != nil {
					add(MarkdownFinding{Name: name, Value: value, File: file, Line: line, Confidence: ConfidenceFencedKnown})
					continue
				}
				if secretNames.MatchString(name) && len(value) >= 8 {
					add(MarkdownFinding{Name: name, Value: value, File: file, Line: line, Confidence: ConfidenceFencedAssignment})
					continue
				}
			}
		}

		for _, p := range providers {
			for _, tok := range p.token.FindAllString(text, -1) {
				add(MarkdownFinding{Name: p.envName, Value: tok, File: file, Line: line, Confidence: ConfidenceToken})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return AggregateFindings(findings), nil
}

// MaxAggregateConfidence caps the score of a value seen many times.
const MaxAggregateConfidence = 0.99

// AggregateFindings merges findings that share a value. Detections on the
// same file and line count once at their highest score. Distinct sightings
// combine as independent evidence, 1 - (1-c1)(1-c2)..., capped at
// MaxAggregateConfidence. The merged finding keeps the location of the first
// sighting and the name of the highest scoring one. Order follows the first
// sighting of each value.
func AggregateFindings(findings []MarkdownFinding) []MarkdownFinding {
	type sighting struct {
		confidence  float64
		occurrences int
	}
	type group struct {
		finding   MarkdownFinding
		best      float64
		locations map[string]*sighting
		order     []string
	}

	var (
		groups []*group
		byVal  = map[string]*group{}
	)
	for _, f := range findings {
		g, ok := byVal[f.Value]
		if !ok {
			g = &group{finding: f, best: f.Confidence, locations: map[string]*sighting{}}
			byVal[f.Value] = g
			groups = append(groups, g)
		}
		if f.Confidence > g.best {
			g.best = f.Confidence
			g.finding.Name = f.Name
		}

		occurrences := f.Occurrences
		if occurrences < 1 {
			occurrences = 1
		}
		loc := fmt.Sprintf("%s:%d", f.File, f.Line)
		sg, ok := g.locations[loc]
		if !ok {
			g.locations[loc] = &sighting{confidence: f.Confidence, occurrences: occurrences}
			g.order = append(g.order, loc)
			continue
		}
		sg.confidence = max(sg.confidence, f.Confidence)
		sg.occurrences = max(sg.occurrences, occurrences)
	}

	out := make([]MarkdownFinding, 0, len(groups))
	for _, g := range groups {
		f := g.finding
		f.Occurrences = 0
		if len(g.order) == 1 {
			sg := g.locations[g.order[0]]
			f.Confidence = sg.confidence
			f.Occurrences = sg.occurrences
			out = append(out, f)
			continue
		}

		miss := 1.0
		for _, loc := range g.order {
			sg := g.locations[loc]
			miss *= 1 - sg.confidence
			f.Occurrences += sg.occurrences
		}
		f.Confidence = min(1-miss, MaxAggregateConfidence)
		out = append(out, f)
	}
	return out
}

// ScanMarkdownFile opens and scans path.
func ScanMarkdownFile(path string) ([]MarkdownFinding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ScanMarkdown(f, path)
}

func tokenProvider(value string) *provider {
	for i := range providers {
		if providers[i].token.MatchString(value) {
			return &providers[i]
		}
	}
	return nil
}
