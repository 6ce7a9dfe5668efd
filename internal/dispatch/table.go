package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MrWong99/creatorgw/internal/catalogue"
	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// DefaultJobTypes maps each tool to the provider job definition that serves
// it. generate_rate_card runs the profile job and prices the result locally.
var DefaultJobTypes = map[string]string{
	catalogue.ToolGetCreatorProfiles:       "creatorgw~creator-profile-scraper",
	catalogue.ToolAuditCreatorAuthenticity: "creatorgw~authenticity-auditor",
	catalogue.ToolFindSponsorshipHistory:   "creatorgw~sponsorship-history-miner",
	catalogue.ToolScoreBrandCompatibility:  "creatorgw~brand-compatibility-scorer",
	catalogue.ToolBenchmarkCompetitors:     "creatorgw~competitor-benchmark",
	catalogue.ToolGenerateRateCard:         "creatorgw~creator-profile-scraper",
}

// envelopes are the fixed per-tool resource ceilings.
var envelopes = map[string]jobs.Envelope{
	catalogue.ToolGetCreatorProfiles:       {MemoryMB: 1024, TimeoutSeconds: 120},
	catalogue.ToolAuditCreatorAuthenticity: {MemoryMB: 2048, TimeoutSeconds: 300},
	catalogue.ToolFindSponsorshipHistory:   {MemoryMB: 1024, TimeoutSeconds: 600},
	catalogue.ToolScoreBrandCompatibility:  {MemoryMB: 1024, TimeoutSeconds: 180},
	catalogue.ToolBenchmarkCompetitors:     {MemoryMB: 2048, TimeoutSeconds: 300},
	catalogue.ToolGenerateRateCard:         {MemoryMB: 1024, TimeoutSeconds: 120},
}

// route is one resolved row of the job table.
type route struct {
	jobType  string
	envelope jobs.Envelope
}

// EnvelopeFor returns the resource envelope of tool.
func EnvelopeFor(tool string) (jobs.Envelope, bool) {
	env, ok := envelopes[tool]
	return env, ok
}

// buildRoutes resolves the job table once: defaults overlaid with
// overrides. Every override must name a catalogued tool and a non-empty job
// type.
func buildRoutes(overrides map[string]string) (map[string]route, error) {
	routes := make(map[string]route, len(DefaultJobTypes))
	for tool, jobType := range DefaultJobTypes {
		routes[tool] = route{jobType: jobType, envelope: envelopes[tool]}
	}

	var bad []string
	for tool, jobType := range overrides {
		r, ok := routes[tool]
		if !ok {
			bad = append(bad, fmt.Sprintf("unknown tool %q", tool))
			continue
		}
		jobType = strings.TrimSpace(jobType)
		if jobType == "" {
			bad = append(bad, fmt.Sprintf("empty job type for %q", tool))
			continue
		}
		r.jobType = jobType
		routes[tool] = r
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("dispatch: invalid job overrides: %s", strings.Join(bad, "; "))
	}
	return routes, nil
}

// ---- payload projections ----

// profileInput is the payload of the profile scraper.
type profileInput struct {
	Usernames []string `json:"usernames"`
	Platform  string   `json:"platform"`
}

// auditInput is the payload of the authenticity auditor.
type auditInput struct {
	Usernames      []string `json:"usernames"`
	Platform       string   `json:"platform"`
	IncludeRawData bool     `json:"includeRawData"`
}

// sponsorshipInput is the payload of the sponsorship miner.
type sponsorshipInput struct {
	ChannelURLs      []string `json:"channelUrls"`
	VideosPerChannel int      `json:"videosPerChannel"`
	YouTubeAPIKey    string   `json:"youtubeApiKey,omitempty"`
}

// brandInput is the payload of the brand compatibility scorer.
type brandInput struct {
	Brand     brand    `json:"brand"`
	Usernames []string `json:"usernames"`
	Platform  string   `json:"platform"`
}

type brand struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// benchmarkInput is the payload of the competitor benchmark.
type benchmarkInput struct {
	Usernames   []string `json:"usernames"`
	Platform    string   `json:"platform"`
	CompareMode bool     `json:"compareMode"`
}

// project translates a command into its job payload. Slices are copied so a
// payload never aliases the command it came from.
func project(cmd catalogue.Command) (any, error) {
	switch c := cmd.(type) {
	case *catalogue.ProfileLookup:
		return profileInput{Usernames: clone(c.Usernames), Platform: c.Platform}, nil
	case *catalogue.AuthenticityAudit:
		return auditInput{Usernames: clone(c.Usernames), Platform: c.Platform, IncludeRawData: c.IncludeRawData}, nil
	case *catalogue.SponsorshipHistory:
		return sponsorshipInput{ChannelURLs: clone(c.ChannelURLs), VideosPerChannel: c.VideosPerChannel, YouTubeAPIKey: c.YouTubeAPIKey}, nil
	case *catalogue.BrandCompatibility:
		return brandInput{
			Brand:     brand{Name: c.BrandName, Description: c.BrandDescription, Category: c.BrandCategory},
			Usernames: clone(c.Usernames),
			Platform:  c.Platform,
		}, nil
	case *catalogue.CompetitorBenchmark:
		return benchmarkInput{Usernames: clone(c.Usernames), Platform: c.Platform, CompareMode: c.CompareMode}, nil
	case *catalogue.RateCardRequest:
		return profileInput{Usernames: []string{c.Username}, Platform: c.Platform}, nil
	case nil:
		return nil, fmt.Errorf("dispatch: nil command")
	}
	return nil, fmt.Errorf("dispatch: no job mapping for %T", cmd)
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
