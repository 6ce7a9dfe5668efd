package pricing

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Key aliases probed, in order, when projecting a scraped profile record.
// Different platforms' scrapers name the same metric differently.
var (
	usernameKeys   = []string{"username", "handle", "channelName", "uniqueId"}
	platformKeys   = []string{"platform"}
	followersKeys  = []string{"followersCount", "followers", "subscriberCount", "followers_count", "authorMeta.fans"}
	engagementKeys = []string{"engagementRate", "engagement_rate", "avgEngagementRate"}
)

// ProfileFromRecord projects the pricing inputs out of an opaque profile
// record. Missing or non-numeric metrics resolve to 0. fallbackUser and
// fallbackPlatform fill the echo fields when the record does not carry them.
func ProfileFromRecord(record json.RawMessage, fallbackUser, fallbackPlatform string) Profile {
	p := Profile{
		Username: fallbackUser,
		Platform: fallbackPlatform,
	}
	if !gjson.ValidBytes(record) {
		return p
	}
	if v := first(record, usernameKeys); v.Type == gjson.String && v.Str != "" {
		p.Username = v.Str
	}
	if v := first(record, platformKeys); v.Type == gjson.String && v.Str != "" {
		p.Platform = v.Str
	}
	p.Followers = number(first(record, followersKeys))
	p.EngagementRate = number(first(record, engagementKeys))
	return p
}

// first returns the first alias present in record.
func first(record json.RawMessage, keys []string) gjson.Result {
	for _, k := range keys {
		if r := gjson.GetBytes(record, k); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// number accepts JSON numbers and numeric strings.
func number(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Num
	case gjson.String:
		return r.Float()
	}
	return 0
}
