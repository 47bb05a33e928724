// Package viral scores social content for virality with per-platform
// engagement formulas, normalizes to a [0,10] scale and assigns the
// MEGA_VIRAL / VIRAL / TRENDING / POPULAR category bands.
package viral

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"garimpo/internal/core"
)

// MinScoreForCapture is the default floor for the top-performers list that
// feeds visual capture. Items below it stay in aggregate stats only.
const MinScoreForCapture = 5.0

// ScorePost computes the viral score for a post using its platform formula.
// All divisors are empirical and deliberately kept as-is across platforms.
func ScorePost(post core.SocialPost) float64 {
	m := post.Metrics
	var raw, divisor float64

	switch post.Platform {
	case core.PlatformYouTube:
		raw = float64(m.Views)/1000 + float64(m.Likes)/100 + float64(m.Comments)/10
		divisor = 100
	case core.PlatformInstagram, core.PlatformFacebook, core.PlatformLinkedIn:
		raw = float64(m.Likes)/100 + float64(m.Comments)/10 + float64(m.Shares)/5
		divisor = 50
	case core.PlatformTwitter:
		raw = float64(m.Retweets)/10 + float64(m.Likes)/50 + float64(m.Replies)/5
		divisor = 20
	case core.PlatformTikTok:
		raw = float64(m.Views)/10000 + float64(m.Likes)/500 + float64(m.Shares)/100
		divisor = 50
	default:
		return 0
	}

	score := raw / divisor
	if score > 10 {
		score = 10
	}
	return score
}

// ScoreWeb maps a generic web result's relevance onto the same [0,10] scale.
func ScoreWeb(relevance float64) float64 {
	score := relevance * 10
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// Categorize maps a viral score to its band.
func Categorize(score float64) core.ViralCategory {
	switch {
	case score >= 9:
		return core.CategoryMegaViral
	case score >= 7:
		return core.CategoryViral
	case score >= 5:
		return core.CategoryTrending
	default:
		return core.CategoryPopular
	}
}

// IdentifyViral scores every post, attaches score and category, and returns
// the ones at or above minScore sorted by score descending. The input slice
// is not modified.
func IdentifyViral(posts []core.SocialPost, minScore float64) []core.SocialPost {
	var out []core.SocialPost
	for _, post := range posts {
		post.ViralScore = ScorePost(post)
		post.ViralCategory = Categorize(post.ViralScore)
		if post.ViralScore >= minScore {
			out = append(out, post)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ViralScore > out[j].ViralScore
	})
	return out
}

// ParseMetric parses an engagement counter that may arrive as a number, a
// numeric string, or abbreviated forms like "1.2K" / "3M". Anything
// unparseable is 0.
func ParseMetric(value any) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		if v < 0 {
			return 0
		}
		return int64(v)
	case string:
		return parseMetricString(v)
	default:
		return parseMetricString(fmt.Sprintf("%v", v))
	}
}

func parseMetricString(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1_000, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1_000_000, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		mult, s = 1_000_000_000, strings.TrimSuffix(s, "B")
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f * float64(mult))
}
