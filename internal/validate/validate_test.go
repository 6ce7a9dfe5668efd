package validate

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/MrWong99/creatorgw/internal/catalogue"
)

func mustValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func asViolation(t *testing.T, err error) *SchemaViolationError {
	t.Helper()
	var sv *SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("error = %v (%T), want *SchemaViolationError", err, err)
	}
	return sv
}

// ─── Unknown tools ──────────────────────────────────────────────────────────

func TestValidate_UnknownTool(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	tests := []struct {
		name           string
		wantSuggestion string
	}{
		{"get_creator_profile", catalogue.ToolGetCreatorProfiles},
		{"Generate_Rate_Card", catalogue.ToolGenerateRateCard},
		{"benchmark_competitor", catalogue.ToolBenchmarkCompetitors},
		{"delete_everything", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(tt.name, json.RawMessage(`{}`))
			var ut *UnknownToolError
			if !errors.As(err, &ut) {
				t.Fatalf("error = %v, want *UnknownToolError", err)
			}
			if ut.Name != tt.name {
				t.Errorf("Name = %q, want %q", ut.Name, tt.name)
			}
			if ut.Suggestion != tt.wantSuggestion {
				t.Errorf("Suggestion = %q, want %q", ut.Suggestion, tt.wantSuggestion)
			}
			if tt.wantSuggestion != "" && !strings.Contains(err.Error(), "did you mean") {
				t.Errorf("error %q should carry the suggestion", err)
			}
		})
	}
}

// ─── Bounds ─────────────────────────────────────────────────────────────────

func TestValidate_VideosPerChannelBounds(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	tests := []struct {
		name    string
		args    string
		want    int
		wantErr bool
	}{
		{"below minimum", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":3}`, 0, true},
		{"above maximum", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":250}`, 0, true},
		{"lower bound", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":5}`, 5, false},
		{"upper bound", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":200}`, 200, false},
		{"in range", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":30}`, 30, false},
		{"integral float", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":42.0}`, 42, false},
		{"fractional", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":30.5}`, 0, true},
		{"string", `{"channelUrls":["https://youtube.com/@a"],"videosPerChannel":"30"}`, 0, true},
		{"absent takes default", `{"channelUrls":["https://youtube.com/@a"]}`, 30, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, err := v.Validate(catalogue.ToolFindSponsorshipHistory, json.RawMessage(tt.args))
			if tt.wantErr {
				sv := asViolation(t, err)
				if sv.Field != "/videosPerChannel" {
					t.Errorf("Field = %q, want /videosPerChannel", sv.Field)
				}
				if sv.Tool != catalogue.ToolFindSponsorshipHistory {
					t.Errorf("Tool = %q", sv.Tool)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			sh, ok := cmd.(*catalogue.SponsorshipHistory)
			if !ok {
				t.Fatalf("command = %T, want *catalogue.SponsorshipHistory", cmd)
			}
			if sh.VideosPerChannel != tt.want {
				t.Errorf("VideosPerChannel = %d, want %d", sh.VideosPerChannel, tt.want)
			}
		})
	}
}

func TestValidate_ArrayBounds(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	tooMany := make([]string, 26)
	for i := range tooMany {
		tooMany[i] = "u"
	}
	raw, _ := json.Marshal(map[string]any{"usernames": tooMany})

	tests := []struct {
		tool, args, field string
	}{
		{catalogue.ToolGetCreatorProfiles, `{"usernames":[]}`, "/usernames"},
		{catalogue.ToolGetCreatorProfiles, string(raw), "/usernames"},
		{catalogue.ToolGetCreatorProfiles, `{"usernames":[""]}`, "/usernames/0"},
		{catalogue.ToolBenchmarkCompetitors, `{"usernames":["only-one"]}`, "/usernames"},
		{catalogue.ToolFindSponsorshipHistory, `{"channelUrls":["a","b","c","d","e","f","g","h","i","j","k"]}`, "/channelUrls"},
	}
	for _, tt := range tests {
		_, err := v.Validate(tt.tool, json.RawMessage(tt.args))
		sv := asViolation(t, err)
		if sv.Field != tt.field {
			t.Errorf("%s %s: Field = %q, want %q", tt.tool, tt.args[:min(len(tt.args), 40)], sv.Field, tt.field)
		}
	}
}

// ─── Shape errors ───────────────────────────────────────────────────────────

func TestValidate_ShapeErrors(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	tests := []struct {
		name  string
		tool  string
		args  string
		field string
	}{
		{"missing required", catalogue.ToolGetCreatorProfiles, `{}`, "/usernames"},
		{"empty args treated as object", catalogue.ToolGenerateRateCard, ``, "/username"},
		{"null args treated as object", catalogue.ToolGenerateRateCard, `null`, "/username"},
		{"unknown property", catalogue.ToolGenerateRateCard, `{"username":"a","followers":10}`, "/followers"},
		{"enum violation", catalogue.ToolGenerateRateCard, `{"username":"a","platform":"myspace"}`, "/platform"},
		{"wrong type", catalogue.ToolAuditCreatorAuthenticity, `{"usernames":["a"],"includeRawData":"yes"}`, "/includeRawData"},
		{"not an object", catalogue.ToolGetCreatorProfiles, `["a"]`, ""},
		{"malformed json", catalogue.ToolGetCreatorProfiles, `{"usernames":`, ""},
		{"trailing data", catalogue.ToolGetCreatorProfiles, `{"usernames":["a"]} {}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(tt.tool, json.RawMessage(tt.args))
			sv := asViolation(t, err)
			if sv.Field != tt.field {
				t.Errorf("Field = %q, want %q (reason %q)", sv.Field, tt.field, sv.Reason)
			}
			if sv.Reason == "" {
				t.Error("empty Reason")
			}
		})
	}
}

// ─── Defaults ───────────────────────────────────────────────────────────────

func TestValidate_AppliesDefaults(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	tests := []struct {
		tool string
		args string
		want catalogue.Command
	}{
		{
			catalogue.ToolGetCreatorProfiles,
			`{"usernames":["natgeo"]}`,
			&catalogue.ProfileLookup{Usernames: []string{"natgeo"}, Platform: "instagram"},
		},
		{
			catalogue.ToolAuditCreatorAuthenticity,
			`{"usernames":["a","b"],"platform":"tiktok"}`,
			&catalogue.AuthenticityAudit{Usernames: []string{"a", "b"}, Platform: "tiktok", IncludeRawData: false},
		},
		{
			catalogue.ToolFindSponsorshipHistory,
			`{"channelUrls":["https://youtube.com/@mkbhd"],"youtubeApiKey":"AIza-secret"}`,
			&catalogue.SponsorshipHistory{ChannelURLs: []string{"https://youtube.com/@mkbhd"}, VideosPerChannel: 30, YouTubeAPIKey: "AIza-secret"},
		},
		{
			catalogue.ToolScoreBrandCompatibility,
			`{"brandName":"Acme","usernames":["a"]}`,
			&catalogue.BrandCompatibility{BrandName: "Acme", Usernames: []string{"a"}, Platform: "instagram"},
		},
		{
			catalogue.ToolBenchmarkCompetitors,
			`{"usernames":["a","b"],"compareMode":true}`,
			&catalogue.CompetitorBenchmark{Usernames: []string{"a", "b"}, Platform: "instagram", CompareMode: true},
		},
		{
			catalogue.ToolGenerateRateCard,
			`{"username":"natgeo","platform":"youtube"}`,
			&catalogue.RateCardRequest{Username: "natgeo", Platform: "youtube"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			t.Parallel()
			got, err := v.Validate(tt.tool, json.RawMessage(tt.args))
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("command = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	// Several violations at once; the reported one must not vary.
	args := json.RawMessage(`{"usernames":[],"platform":"myspace","compareMode":"x"}`)
	_, first := v.Validate(catalogue.ToolBenchmarkCompetitors, args)
	for range 20 {
		_, err := v.Validate(catalogue.ToolBenchmarkCompetitors, args)
		if err.Error() != first.Error() {
			t.Fatalf("non-deterministic error:\n%v\n%v", first, err)
		}
	}
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	raw := json.RawMessage(`{"channelUrls":["x"]}`)
	orig := string(raw)
	if _, err := v.Validate(catalogue.ToolFindSponsorshipHistory, raw); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if string(raw) != orig {
		t.Errorf("raw mutated: %s", raw)
	}
}

func TestPackageValidate(t *testing.T) {
	t.Parallel()
	cmd, err := Validate(catalogue.ToolGenerateRateCard, json.RawMessage(`{"username":"x"}`))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cmd.ToolName() != catalogue.ToolGenerateRateCard {
		t.Errorf("ToolName = %q", cmd.ToolName())
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{&UnknownToolError{Name: "x"}, `unknown tool "x"`},
		{&UnknownToolError{Name: "x", Suggestion: "y"}, `unknown tool "x" (did you mean "y"?)`},
		{&SchemaViolationError{Tool: "t", Field: "/f", Reason: "bad"}, `invalid arguments for t: /f: bad`},
		{&SchemaViolationError{Tool: "t", Reason: "bad"}, `invalid arguments for t: bad`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
