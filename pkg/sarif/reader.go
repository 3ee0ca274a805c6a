package sarif

import (
	"encoding/json"
	"fmt"
)

// FlatResult is one result joined with its rule metadata, the shape the
// adapters hand to the normalizer.
type FlatResult struct {
	File             string
	Line             int
	Column           int
	RuleID           string
	RuleName         string
	Message          string
	Level            string
	SecuritySeverity string
	Snippet          string
}

// Parse decodes a SARIF document.
func Parse(data []byte) (*Log, error) {
	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode sarif: %w", err)
	}
	return &log, nil
}

// Flatten extracts one FlatResult per result location, resolving rule
// names through the driver's rule index. Results without a rule id or a
// usable location are dropped; that is the caller's malformed-record skip.
func Flatten(log *Log) []FlatResult {
	var out []FlatResult
	for _, run := range log.Runs {
		rules := make(map[string]Rule, len(run.Tool.Driver.Rules))
		for _, r := range run.Tool.Driver.Rules {
			rules[r.ID] = r
		}

		for _, res := range run.Results {
			if res.RuleID == "" {
				continue
			}
			for _, loc := range res.Locations {
				uri := loc.PhysicalLocation.ArtifactLocation.URI
				if uri == "" {
					continue
				}
				region := loc.PhysicalLocation.Region
				line := region.StartLine
				if line < 1 {
					line = 1
				}

				fr := FlatResult{
					File:    uri,
					Line:    line,
					Column:  region.StartColumn,
					RuleID:  res.RuleID,
					Message: res.Message.Text,
					Level:   res.Level,
				}
				if region.Snippet != nil {
					fr.Snippet = region.Snippet.Text
				}
				if rule, ok := rules[res.RuleID]; ok {
					if rule.ShortDescription != nil {
						fr.RuleName = rule.ShortDescription.Text
					}
					if rule.Properties != nil {
						fr.SecuritySeverity = rule.Properties.SecuritySeverity
					}
				}
				out = append(out, fr)
			}
		}
	}
	return out
}
