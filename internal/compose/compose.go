// Package compose shapes a job's result set into the payload returned to the
// caller.
//
// Most tools return their records verbatim as a JSON array. The authenticity
// audit adds a condensed per-creator summary alongside the full detail, and
// the rate card returns its single synthesized record as an object. Compose
// never modifies the result set it is given.
package compose

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/MrWong99/creatorgw/internal/catalogue"
	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// AuditSummary is the condensed view of one authenticity audit record.
type AuditSummary struct {
	Identifier        string  `json:"identifier"`
	Score             float64 `json:"score"`
	RatingLabel       string  `json:"ratingLabel"`
	RecommendedAction string  `json:"recommendedAction"`
	RedFlagCount      int     `json:"redFlagCount"`
	GreenFlagCount    int     `json:"greenFlagCount"`
}

// AuditReport is the response payload of audit_creator_authenticity.
type AuditReport struct {
	Summary []AuditSummary    `json:"summary"`
	Details []json.RawMessage `json:"details"`
}

// Compose returns the response payload for tool built from rs.
func Compose(tool string, rs jobs.ResultSet) (json.RawMessage, error) {
	switch tool {
	case catalogue.ToolAuditCreatorAuthenticity:
		return marshal(tool, AuditReport{
			Summary: Summarize(rs),
			Details: records(rs),
		})
	case catalogue.ToolGenerateRateCard:
		if len(rs) != 1 {
			return nil, fmt.Errorf("compose: %s expects one rate card, got %d records", tool, len(rs))
		}
		return marshal(tool, rs[0])
	default:
		return marshal(tool, records(rs))
	}
}

// Summarize projects the audit summary fields out of each record. Absent
// or mistyped fields resolve to zero values.
func Summarize(rs jobs.ResultSet) []AuditSummary {
	out := make([]AuditSummary, 0, len(rs))
	for _, rec := range rs {
		out = append(out, summarize(rec))
	}
	return out
}

// Key aliases probed for each summary field.
var (
	identifierKeys = []string{"identifier", "username", "handle", "profile.username"}
	scoreKeys      = []string{"score", "authenticityScore", "summary.score"}
	ratingKeys     = []string{"ratingLabel", "rating", "summary.ratingLabel"}
	actionKeys     = []string{"recommendedAction", "recommendation", "summary.recommendedAction"}
	redFlagKeys    = []string{"redFlags", "red_flags", "flags.red"}
	greenFlagKeys  = []string{"greenFlags", "green_flags", "flags.green"}
	redCountKeys   = []string{"redFlagCount"}
	greenCountKeys = []string{"greenFlagCount"}
)

func summarize(rec json.RawMessage) AuditSummary {
	if !gjson.ValidBytes(rec) {
		return AuditSummary{}
	}
	return AuditSummary{
		Identifier:        str(lookup(rec, identifierKeys)),
		Score:             number(lookup(rec, scoreKeys)),
		RatingLabel:       str(lookup(rec, ratingKeys)),
		RecommendedAction: str(lookup(rec, actionKeys)),
		RedFlagCount:      flagCount(rec, redCountKeys, redFlagKeys),
		GreenFlagCount:    flagCount(rec, greenCountKeys, greenFlagKeys),
	}
}

// flagCount prefers an explicit count and falls back to the length of a flag
// array.
func flagCount(rec json.RawMessage, countKeys, listKeys []string) int {
	if r := lookup(rec, countKeys); r.Type == gjson.Number {
		return int(r.Int())
	}
	if r := lookup(rec, listKeys); r.IsArray() {
		return len(r.Array())
	}
	return 0
}

// lookup returns the first alias present and non-null in rec.
func lookup(rec json.RawMessage, keys []string) gjson.Result {
	for _, k := range keys {
		if r := gjson.GetBytes(rec, k); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func number(r gjson.Result) float64 {
	if r.Type == gjson.Number {
		return r.Num
	}
	return 0
}

func str(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return ""
}

// records returns rs as a non-nil slice so an empty result encodes as [].
func records(rs jobs.ResultSet) []json.RawMessage {
	if rs == nil {
		return []json.RawMessage{}
	}
	return rs
}

func marshal(tool string, v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("compose: encode %s response: %w", tool, err)
	}
	return b, nil
}
