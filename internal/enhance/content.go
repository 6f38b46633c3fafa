package enhance

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/media"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
)

// Post meta keys written on every successful run.
const (
	MetaFocusKeyword = "rank_math_focus_keyword"
	MetaDescription  = "rank_math_description"
	MetaTitle        = "rank_math_title"
	MetaGeoLatitude  = "geo_latitude"
	MetaGeoLongitude = "geo_longitude"
	MetaGeoAddress   = "geo_address"
)

func mediaFilename(title, suffix string) string {
	return media.Filename(title, suffix)
}

// videoEmbed is appended to the raw post content when a video was found.
func videoEmbed(v *models.Video) string {
	title := html.EscapeString(v.Title)
	return fmt.Sprintf("\n\n"+`<div style="margin:30px 0;"><iframe width="560" height="315" src="https://www.youtube.com/embed/%s" title="%s" frameborder="0" allowfullscreen style="max-width:100%%;"></iframe><p><em>Watch: %s</em></p></div>`,
		html.EscapeString(v.ID), title, title)
}

// postMeta builds the post meta update. Empty values are left out so that
// existing RankMath fields on the post are not cleared.
func postMeta(req models.EnhanceRequest, description string, p config.SiteProfile) map[string]string {
	meta := make(map[string]string, 6)
	for key, value := range map[string]string{
		MetaFocusKeyword: req.FocusKeyword,
		MetaDescription:  description,
		MetaTitle:        p.SEOTitle(req.Title),
		MetaGeoLatitude:  p.Geo.Latitude,
		MetaGeoLongitude: p.Geo.Longitude,
		MetaGeoAddress:   p.Geo.Address,
	} {
		if value != "" {
			meta[key] = value
		}
	}
	return meta
}

func startMessage(title string) string {
	return fmt.Sprintf("🎨 SFK Enhancing: \"%s\"\n⏳ Getting image + YouTube...", title)
}

func successMessage(req models.EnhanceRequest, video *models.Video, p config.SiteProfile, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ SFK Post Enhanced!\n\n📄 %s\n🔗 %s\n\n", req.Title, req.PostURL)
	b.WriteString("🖼️ Featured image: uploaded\n")
	if video != nil {
		fmt.Fprintf(&b, "🎬 YouTube: \"%s\" embedded\n", video.Title)
	} else {
		b.WriteString("🎬 YouTube: no video found\n")
	}
	fmt.Fprintf(&b, "📊 RankMath: updated\n📍 Geo: %s tagged\n", p.Region)
	fmt.Fprintf(&b, "\n🕐 %s", localTimestamp(now.In(p.Location())))
	return b.String()
}

func failureMessage(title, errMsg string) string {
	return fmt.Sprintf("❌ SFK Enhancement failed for \"%s\"\nError: %s\n\nPost is live but without image/YouTube.", title, errMsg)
}

// localTimestamp renders t the way en-CA locales do: 2026-10-19, 3:04:05 p.m.
func localTimestamp(t time.Time) string {
	s := t.Format("2006-01-02, 3:04:05 PM")
	s = strings.Replace(s, "AM", "a.m.", 1)
	return strings.Replace(s, "PM", "p.m.", 1)
}
