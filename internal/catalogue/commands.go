package catalogue

// Command is the validated, typed form of one tool invocation's arguments.
// Each tool has exactly one implementation; its fields are the properties
// declared by the tool's input schema with defaults applied.
type Command interface {
	// ToolName returns the catalogue name of the tool the command invokes.
	ToolName() string
}

// Platform is a social network a creator publishes on.
type Platform = string

// Supported platforms.
const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// ProfileLookup fetches public profile metrics.
type ProfileLookup struct {
	Usernames []string `json:"usernames" jsonschema:"minItems=1,maxItems=25,minLength=1" jsonschema_description:"Creator usernames or handles, without the leading @."`
	Platform  Platform `json:"platform,omitempty" jsonschema:"enum=instagram,enum=tiktok,enum=youtube,default=instagram" jsonschema_description:"Platform the usernames belong to."`
}

// AuthenticityAudit runs a fake-follower and engagement-fraud audit.
type AuthenticityAudit struct {
	Usernames      []string `json:"usernames" jsonschema:"minItems=1,maxItems=25,minLength=1" jsonschema_description:"Creator usernames to audit."`
	Platform       Platform `json:"platform,omitempty" jsonschema:"enum=instagram,enum=tiktok,enum=youtube,default=instagram" jsonschema_description:"Platform the usernames belong to."`
	IncludeRawData bool     `json:"includeRawData,omitempty" jsonschema:"default=false" jsonschema_description:"Include the sampled follower and comment data the audit was based on."`
}

// SponsorshipHistory mines YouTube channels for past sponsorships.
type SponsorshipHistory struct {
	ChannelURLs      []string `json:"channelUrls" jsonschema:"minItems=1,maxItems=10,minLength=1" jsonschema_description:"YouTube channel URLs or @handles."`
	VideosPerChannel int      `json:"videosPerChannel,omitempty" jsonschema:"minimum=5,maximum=200,default=30" jsonschema_description:"How many recent videos to scan per channel."`
	YouTubeAPIKey    string   `json:"youtubeApiKey,omitempty" jsonschema_description:"Optional YouTube Data API key used by the miner for higher quota. Passed through and never stored."`
}

// BrandCompatibility scores the fit between a brand and creators.
type BrandCompatibility struct {
	BrandName        string   `json:"brandName" jsonschema:"minLength=1" jsonschema_description:"Name of the brand."`
	BrandDescription string   `json:"brandDescription,omitempty" jsonschema_description:"What the brand sells and who it sells to."`
	BrandCategory    string   `json:"brandCategory,omitempty" jsonschema_description:"Industry or product category, e.g. fitness, beauty, gaming."`
	Usernames        []string `json:"usernames" jsonschema:"minItems=1,maxItems=10,minLength=1" jsonschema_description:"Creator usernames to score against the brand."`
	Platform         Platform `json:"platform,omitempty" jsonschema:"enum=instagram,enum=tiktok,enum=youtube,default=instagram" jsonschema_description:"Platform the usernames belong to."`
}

// CompetitorBenchmark compares creators against each other.
type CompetitorBenchmark struct {
	Usernames   []string `json:"usernames" jsonschema:"minItems=2,maxItems=10,minLength=1" jsonschema_description:"Creators to benchmark."`
	Platform    Platform `json:"platform,omitempty" jsonschema:"enum=instagram,enum=tiktok,enum=youtube,default=instagram" jsonschema_description:"Platform the usernames belong to."`
	CompareMode bool     `json:"compareMode,omitempty" jsonschema:"default=false" jsonschema_description:"Add head-to-head rankings across all metrics."`
}

// RateCardRequest prices a single creator locally from a fresh profile fetch.
type RateCardRequest struct {
	Username string   `json:"username" jsonschema:"minLength=1" jsonschema_description:"Creator username or handle, without the leading @."`
	Platform Platform `json:"platform,omitempty" jsonschema:"enum=instagram,enum=tiktok,enum=youtube,default=instagram" jsonschema_description:"Platform the username belongs to."`
}

func (*ProfileLookup) ToolName() string       { return ToolGetCreatorProfiles }
func (*AuthenticityAudit) ToolName() string   { return ToolAuditCreatorAuthenticity }
func (*SponsorshipHistory) ToolName() string  { return ToolFindSponsorshipHistory }
func (*BrandCompatibility) ToolName() string  { return ToolScoreBrandCompatibility }
func (*CompetitorBenchmark) ToolName() string { return ToolBenchmarkCompetitors }
func (*RateCardRequest) ToolName() string     { return ToolGenerateRateCard }
