// Package catalogue is the static registry of tools the gateway exposes.
//
// Every tool is described by a [Descriptor] (name, human-readable
// description, JSON Schema for its arguments) and backed by one [Command]
// struct. The input schemas are reflected from the command structs once at
// package initialisation, so the schema a caller sees in tools/list and the
// schema arguments are validated against are the same document.
//
// The catalogue is immutable after init and safe for concurrent use.
package catalogue

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Tool names.
const (
	ToolGetCreatorProfiles       = "get_creator_profiles"
	ToolAuditCreatorAuthenticity = "audit_creator_authenticity"
	ToolFindSponsorshipHistory   = "find_sponsorship_history"
	ToolScoreBrandCompatibility  = "score_brand_compatibility"
	ToolBenchmarkCompetitors     = "benchmark_competitors"
	ToolGenerateRateCard         = "generate_rate_card"
)

// Descriptor describes one tool to the calling agent.
type Descriptor struct {
	// Name is the unique tool name used in tools/call.
	Name string `json:"name"`

	// Description is a human-readable explanation of what the tool does.
	Description string `json:"description"`

	// InputSchema is the JSON Schema the tool's arguments must satisfy.
	InputSchema json.RawMessage `json:"inputSchema"`

	// command is the struct type behind the tool's Command.
	command reflect.Type
}

// NewCommand returns a pointer to a fresh, zero-valued command struct for
// the tool. Arguments are decoded into it after validation.
func (d Descriptor) NewCommand() Command {
	return reflect.New(d.command).Interface().(Command)
}

// entries is the catalogue in tools/list order.
var entries = []struct {
	name        string
	description string
	command     Command
}{
	{
		ToolGetCreatorProfiles,
		"Fetch public profile metrics (followers, engagement rate, bio, recent posts) for up to 25 creators on Instagram, TikTok or YouTube.",
		&ProfileLookup{},
	},
	{
		ToolAuditCreatorAuthenticity,
		"Audit creators for fake followers and engagement fraud. Returns a per-creator summary (score, rating, recommended action, red and green flag counts) alongside the full audit detail.",
		&AuthenticityAudit{},
	},
	{
		ToolFindSponsorshipHistory,
		"Mine the recent videos of up to 10 YouTube channels for past brand sponsorships and paid promotions.",
		&SponsorshipHistory{},
	},
	{
		ToolScoreBrandCompatibility,
		"Score how well creators' audiences and content fit a brand, with the reasoning behind each score.",
		&BrandCompatibility{},
	},
	{
		ToolBenchmarkCompetitors,
		"Benchmark 2 to 10 creators against each other on reach, engagement and posting cadence.",
		&CompetitorBenchmark{},
	},
	{
		ToolGenerateRateCard,
		"Estimate sponsorship rates for a creator from their live audience metrics: tier, estimated views per post, and low/mid/high prices for a sponsored post and a story mention.",
		&RateCardRequest{},
	},
}

var (
	descriptors []Descriptor
	byName      map[string]int
)

func init() {
	descriptors = make([]Descriptor, 0, len(entries))
	byName = make(map[string]int, len(entries))
	for i, e := range entries {
		if e.command.ToolName() != e.name {
			panic(fmt.Sprintf("catalogue: command %T reports tool %q, registered as %q", e.command, e.command.ToolName(), e.name))
		}
		schema, err := reflectSchema(e.command)
		if err != nil {
			panic(fmt.Sprintf("catalogue: reflect schema for %s: %v", e.name, err))
		}
		descriptors = append(descriptors, Descriptor{
			Name:        e.name,
			Description: e.description,
			InputSchema: schema,
			command:     reflect.TypeOf(e.command).Elem(),
		})
		byName[e.name] = i
	}
}

// reflectSchema derives the argument schema from a command struct.
// Properties without omitempty are required; unknown properties are rejected.
func reflectSchema(cmd Command) (json.RawMessage, error) {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	s := r.Reflect(cmd)
	s.Version = ""
	return json.Marshal(s)
}

// List returns every tool descriptor in stable catalogue order. The returned
// slice is a copy; descriptors share their schema bytes, which callers must
// not modify.
func List() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Lookup returns the descriptor registered under name.
func Lookup(name string) (Descriptor, bool) {
	i, ok := byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return descriptors[i], true
}

// Names returns every tool name in catalogue order.
func Names() []string {
	out := make([]string, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Name
	}
	return out
}
