// Package pricing turns a creator's raw audience metrics into a tiered
// sponsorship price estimate ([RateCard]).
//
// [PriceCard] is a pure function: it performs no I/O, holds no state, and
// never fails. Missing or nonsensical inputs degrade to the Nano tier and
// floor pricing rather than an error.
//
// The model:
//
//  1. Followers select one of five [Tier] values (boundaries belong to the
//     higher tier).
//  2. Each tier has a CPM triple and a floor pair (post, story), both
//     monotonically increasing across tiers.
//  3. Engagement rate (percent) selects a multiplier from six bands.
//  4. Estimated views per post = followers × 0.15.
//  5. Each price point = round(views/1000 × CPM × multiplier), clamped up to
//     the tier floor scaled ×1 / ×1.5 / ×2.5 for low / mid / high. Story
//     mentions use CPM × 0.3 and the story floor.
package pricing

import (
	"math"
)

// Tier is an audience-size class used to select pricing benchmarks.
type Tier int

const (
	TierNano Tier = iota
	TierMicro
	TierMidTier
	TierMacro
	TierMega
)

// String returns the display name of the tier.
func (t Tier) String() string {
	switch t {
	case TierNano:
		return "Nano"
	case TierMicro:
		return "Micro"
	case TierMidTier:
		return "Mid-Tier"
	case TierMacro:
		return "Macro"
	case TierMega:
		return "Mega"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the tier as its display name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

const (
	// reachRatio is the observed share of followers that see a typical post.
	reachRatio = 0.15

	// storyCPMScale discounts story CPMs relative to feed posts.
	storyCPMScale = 0.3

	// Currency is the currency all rates are quoted in.
	Currency = "USD"

	// Disclaimer accompanies every rate card.
	Disclaimer = "Estimates are derived from industry CPM benchmarks and public audience metrics. " +
		"They are a starting point for negotiation, not a contractual quote."
)

// cpm is a low/mid/high cost-per-thousand-views triple in USD.
type cpm struct{ low, mid, high float64 }

// floor is the minimum quoted price for a post and a story mention.
type floor struct{ post, story float64 }

// tierRow is one row of the tier table.
type tierRow struct {
	tier         Tier
	minFollowers float64
	cpm          cpm
	floor        floor
}

// tierTable is ordered by ascending minFollowers. CPMs and floors increase
// monotonically down the table and within each triple.
var tierTable = [...]tierRow{
	{TierNano, 0, cpm{10, 15, 25}, floor{50, 25}},
	{TierMicro, 10_000, cpm{15, 25, 35}, floor{200, 100}},
	{TierMidTier, 100_000, cpm{25, 40, 55}, floor{1000, 400}},
	{TierMacro, 500_000, cpm{30, 50, 70}, floor{3000, 1200}},
	{TierMega, 1_000_000, cpm{40, 65, 90}, floor{10000, 4000}},
}

// floorScale maps price position (low, mid, high) to the floor multiplier.
var floorScale = [3]float64{1, 1.5, 2.5}

// engagementBand is one step of the engagement multiplier function.
type engagementBand struct {
	minRate    float64
	multiplier float64
}

// engagementBands is evaluated highest-first; a rate exactly on a boundary
// takes the higher multiplier.
var engagementBands = [...]engagementBand{
	{10, 1.40},
	{7, 1.25},
	{5, 1.10},
	{3, 1.00},
	{1, 0.85},
}

// lowestMultiplier applies below the last band, and to negative or NaN rates.
const lowestMultiplier = 0.70

// Profile is the snapshot of creator metrics the model prices.
type Profile struct {
	Username       string  `json:"username,omitempty"`
	Platform       string  `json:"platform,omitempty"`
	Followers      float64 `json:"followers"`
	EngagementRate float64 `json:"engagementRate"`
}

// PriceRange is a low/mid/high quote.
type PriceRange struct {
	Low      int64  `json:"low"`
	Mid      int64  `json:"mid"`
	High     int64  `json:"high"`
	Currency string `json:"currency"`
}

// RateCard is the computed sponsorship price estimate for one profile.
type RateCard struct {
	Username              string     `json:"username,omitempty"`
	Platform              string     `json:"platform,omitempty"`
	Followers             int64      `json:"followers"`
	EngagementRate        float64    `json:"engagementRate"`
	Tier                  Tier       `json:"tier"`
	EstimatedViewsPerPost int64      `json:"estimatedViewsPerPost"`
	EngagementMultiplier  float64    `json:"engagementMultiplier"`
	SponsoredPost         PriceRange `json:"sponsoredPost"`
	StoryMention          PriceRange `json:"storyMention"`
	Disclaimer            string     `json:"disclaimer"`
}

// TierFor maps a follower count to its tier. Non-positive and NaN counts are
// Nano.
func TierFor(followers float64) Tier {
	return rowFor(sanitize(followers)).tier
}

// EngagementMultiplier maps an engagement-rate percentage to its multiplier.
func EngagementMultiplier(rate float64) float64 {
	if math.IsNaN(rate) {
		return lowestMultiplier
	}
	for _, b := range engagementBands {
		if rate >= b.minRate {
			return b.multiplier
		}
	}
	return lowestMultiplier
}

// PriceCard computes the rate card for p.
func PriceCard(p Profile) RateCard {
	followers := sanitize(p.Followers)
	row := rowFor(followers)
	mult := EngagementMultiplier(p.EngagementRate)
	views := followers * reachRatio

	card := RateCard{
		Username:              p.Username,
		Platform:              p.Platform,
		Followers:             int64(math.Round(followers)),
		EngagementRate:        p.EngagementRate,
		Tier:                  row.tier,
		EstimatedViewsPerPost: int64(math.Round(views)),
		EngagementMultiplier:  mult,
		Disclaimer:            Disclaimer,
	}
	if math.IsNaN(card.EngagementRate) || math.IsInf(card.EngagementRate, 0) {
		card.EngagementRate = 0
	}

	post := [3]float64{row.cpm.low, row.cpm.mid, row.cpm.high}
	var story [3]float64
	for i, c := range post {
		story[i] = c * storyCPMScale
	}

	card.SponsoredPost = priceRange(views, post, mult, row.floor.post)
	card.StoryMention = priceRange(views, story, mult, row.floor.story)
	return card
}

// priceRange computes the three clamped price points for one placement.
func priceRange(views float64, cpms [3]float64, mult, base float64) PriceRange {
	var out [3]int64
	for i, c := range cpms {
		rate := int64(math.Round(views / 1000 * c * mult))
		minimum := int64(math.Round(base * floorScale[i]))
		out[i] = max(rate, minimum)
	}
	return PriceRange{Low: out[0], Mid: out[1], High: out[2], Currency: Currency}
}

// rowFor returns the highest tier whose threshold followers reaches.
func rowFor(followers float64) tierRow {
	row := tierTable[0]
	for _, s := range tierTable {
		if followers >= s.minFollowers {
			row = s
		}
	}
	return row
}

// maxFollowers caps follower counts so every derived price fits in an int64.
const maxFollowers = 1e12

// sanitize maps NaN and negative counts to 0 and caps the rest.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, maxFollowers)
}
