package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDUndefProperty = "PROP001"
	ruleIDParseFailure  = "PROP002"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document from analysis results.
// All file URIs are made relative to the project root; absolute paths
// are never included so that reports are safe to share.
func GenerateSARIF(data Data, opts Options) ([]byte, error) {
	results := make([]sarifResult, 0, data.FindingCount()+len(data.Failures))

	for _, f := range data.Files {
		for _, diag := range f.Diagnostics {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(opts.ProjectRoot, f.File),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if diag.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{
					StartLine:   diag.Line,
					StartColumn: diag.Column,
				}
			}
			results = append(results, sarifResult{
				RuleID:    ruleIDUndefProperty,
				Level:     "warning",
				Message:   sarifMessage{Text: diag.Message},
				Locations: []sarifLocation{loc},
			})
		}
	}

	for _, fail := range data.Failures {
		results = append(results, sarifResult{
			RuleID:  ruleIDParseFailure,
			Level:   "note",
			Message: sarifMessage{Text: fmt.Sprintf("File could not be analyzed: %s", fail.Err)},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(opts.ProjectRoot, fail.Path),
						URIBaseID: "%SRCROOT%",
					},
				},
			}},
		})
	}

	doc := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "proplint",
						Version: nonEmpty(opts.Version, "unknown"),
						Rules:   buildSARIFRules(data),
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(doc, "", "  ")
}

// buildSARIFRules returns only the rules relevant for the given run.
func buildSARIFRules(data Data) []sarifRule {
	rules := make([]sarifRule, 0, 2)
	if data.FindingCount() > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDUndefProperty,
			Name:             "UndefinedProperty",
			ShortDescription: sarifMessage{Text: "A property reference resolves to no declared component member."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	if len(data.Failures) > 0 {
		rules = append(rules, sarifRule{
			ID:               ruleIDParseFailure,
			Name:             "AnalysisFailure",
			ShortDescription: sarifMessage{Text: "A file could not be parsed and was skipped."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "note"},
		})
	}
	return rules
}

// relativeURI converts an absolute file path to a forward-slash relative
// URI anchored at projectRoot. If the path is already relative or
// projectRoot is empty, the original path (with forward slashes) is
// returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	// SARIF URIs use forward slashes.
	return filepath.ToSlash(filePath)
}
