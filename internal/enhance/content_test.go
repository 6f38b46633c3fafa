package enhance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/metrics"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestLocalTimestamp(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 10, 19, 15, 4, 5, 0, loc), "2026-10-19, 3:04:05 p.m."},
		{time.Date(2026, 1, 2, 9, 0, 7, 0, loc), "2026-01-02, 9:00:07 a.m."},
		{time.Date(2026, 1, 2, 0, 30, 0, 0, loc), "2026-01-02, 12:30:00 a.m."},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, localTimestamp(tc.in))
	}
}

func TestSuccessMessage_UsesProfileTimezone(t *testing.T) {
	p := config.DefaultSiteProfile()
	now := time.Date(2026, 10, 19, 19, 4, 5, 0, time.UTC)
	req := models.EnhanceRequest{Title: "Crawlspace Foam", PostURL: "https://sprayfoamkings.com/crawlspace/"}

	got := successMessage(req, &models.Video{ID: "v1", Title: "Crawlspace Tour"}, p, now)
	want := "✅ SFK Post Enhanced!\n\n" +
		"📄 Crawlspace Foam\n" +
		"🔗 https://sprayfoamkings.com/crawlspace/\n\n" +
		"🖼️ Featured image: uploaded\n" +
		"🎬 YouTube: \"Crawlspace Tour\" embedded\n" +
		"📊 RankMath: updated\n" +
		"📍 Geo: Ontario tagged\n" +
		"\n🕐 2026-10-19, 3:04:05 p.m."
	assert.Equal(t, want, got)
}

func TestVideoEmbed_EscapesValues(t *testing.T) {
	got := videoEmbed(&models.Video{ID: "abc123", Title: `Foam "R-Value" <Explained>`})

	assert.Contains(t, got, `src="https://www.youtube.com/embed/abc123"`)
	assert.Contains(t, got, `title="Foam &#34;R-Value&#34; &lt;Explained&gt;"`)
	assert.Contains(t, got, `<em>Watch: Foam &#34;R-Value&#34; &lt;Explained&gt;</em>`)
	assert.Contains(t, got, `style="max-width:100%;"`)
	assert.Equal(t, "\n\n<div", got[:7])
}

func TestPostMeta(t *testing.T) {
	p := config.DefaultSiteProfile()
	meta := postMeta(models.EnhanceRequest{Title: "Basements", FocusKeyword: "basement foam"}, "desc", p)

	assert.Equal(t, "basement foam", meta[MetaFocusKeyword])
	assert.Equal(t, "desc", meta[MetaDescription])
	assert.Equal(t, "Basements | Spray Foam Kings", meta[MetaTitle])
	assert.Equal(t, "Toronto, Ontario, Canada", meta[MetaGeoAddress])
	assert.Len(t, meta, 6)
}

func TestPostMeta_OmitsEmptyValues(t *testing.T) {
	p := config.DefaultSiteProfile()
	meta := postMeta(models.EnhanceRequest{Title: "Basements"}, "", p)

	assert.NotContains(t, meta, MetaFocusKeyword)
	assert.NotContains(t, meta, MetaDescription)
	assert.Equal(t, "Basements | Spray Foam Kings", meta[MetaTitle])
	assert.Len(t, meta, 4)
}

func TestImageOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.OutcomeSuccess},
		{fmt.Errorf("%w after 120 seconds", waiter.ErrTimeout), metrics.OutcomeTimeout},
		{fmt.Errorf("%w: bad json", waiter.ErrMalformedCallback), metrics.OutcomeMalformed},
		{fmt.Errorf("%w: 500", waiter.ErrSubmission), metrics.OutcomeSubmission},
		{context.Canceled, metrics.OutcomeCanceled},
		{waiter.ErrClosed, metrics.OutcomeCanceled},
		{waiter.ErrGenerationFailed, metrics.OutcomeFailed},
		{errors.New("other"), metrics.OutcomeFailed},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, imageOutcome(tc.err))
	}
}
