package output

import (
	"encoding/json"
	"io"

	"github.com/umbrella-scan/umbrella/internal/types"
)

// ToolVersion is the umbrella version reported in SARIF and markdown output.
var ToolVersion = "dev"

// SARIFFormatter outputs SARIF 2.1.0 for code scanning dashboards. Each
// infected file is a result; unscannable files become tool notifications.
type SARIFFormatter struct{}

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations"`
	Results     []sarifResult     `json:"results"`
	Properties  map[string]any    `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
	Properties       map[string]any     `json:"properties,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	RuleIndex  int             `json:"ruleIndex"`
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func location(path string, line int) sarifLocation {
	loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
		ArtifactLocation: sarifArtifactLocation{URI: path},
	}}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line}
	}
	return loc
}

func (f *SARIFFormatter) Format(w io.Writer, result *types.ScanResult) error {
	ruleIndex := map[string]int{}
	rules := []sarifRule{}
	results := []sarifResult{}

	for _, o := range result.Filter(types.StatusInfected) {
		id := o.Signature
		if _, ok := ruleIndex[id]; !ok {
			ruleIndex[id] = len(rules)
			rule := sarifRule{
				ID:               id,
				ShortDescription: sarifMessage{Text: "Malicious script signature " + id},
				DefaultConfig:    sarifDefaultConfig{Level: "error"},
			}
			if o.Pattern != "" {
				rule.Properties = map[string]any{"pattern": o.Pattern}
			}
			rules = append(rules, rule)
		}

		r := sarifResult{
			RuleID:    id,
			RuleIndex: ruleIndex[id],
			Level:     "error",
			Message:   sarifMessage{Text: "Infected: matched " + id},
			Locations: []sarifLocation{location(o.Path, o.Line)},
		}
		if o.Excerpt != "" {
			r.Properties = map[string]any{"excerpt": o.Excerpt}
		}
		results = append(results, r)
	}

	var notes []sarifNotification
	for _, o := range result.Filter(types.StatusUnscannable) {
		notes = append(notes, sarifNotification{
			Level:      "warning",
			Message:    sarifMessage{Text: "File not scanned: " + o.Error},
			Locations:  []sarifLocation{location(o.Path, 0)},
			Properties: map[string]any{"code": o.ErrorCode},
		})
	}

	log := sarifLog{
		Schema:  "https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "umbrella",
						Version:        ToolVersion,
						InformationURI: "https://github.com/umbrella-scan/umbrella",
						Rules:          rules,
					},
				},
				Invocations: []sarifInvocation{{ExecutionSuccessful: true, ToolExecutionNotifications: notes}},
				Results:     results,
				Properties: map[string]any{
					"duration_ms":   result.Duration.Milliseconds(),
					"files_scanned": result.FilesScanned,
				},
			},
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}
