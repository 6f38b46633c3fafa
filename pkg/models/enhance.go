package models

// EnhanceRequest is the webhook body sent by the CMS after a post is published.
type EnhanceRequest struct {
	PostID          int64  `json:"post_id"`
	PostURL         string `json:"post_url"`
	Title           string `json:"title"`
	ImagePrompt     string `json:"image_prompt,omitempty"`
	FocusKeyword    string `json:"focus_keyword,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	Topic           string `json:"topic,omitempty"`
}

// VideoQuery returns the search text used for the related-video lookup.
func (r EnhanceRequest) VideoQuery() string {
	if r.Topic != "" {
		return r.Topic
	}
	return r.Title
}

// Video is a single search hit from the video platform.
type Video struct {
	ID    string `json:"video_id"`
	Title string `json:"title"`
}
