package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// SiteProfile carries the brand-specific text and geo data written into posts.
type SiteProfile struct {
	Brand              string `yaml:"brand"`
	Region             string `yaml:"region"`
	DescriptionPrefix  string `yaml:"description_prefix"`
	FilenameSuffix     string `yaml:"filename_suffix"`
	DefaultImagePrompt string `yaml:"default_image_prompt"`
	TopicImagePrompt   string `yaml:"topic_image_prompt"`
	TimeZone           string `yaml:"timezone"`
	Geo                GeoTag `yaml:"geo"`
}

type GeoTag struct {
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
	Address   string `yaml:"address"`
}

// DefaultSiteProfile returns the Spray Foam Kings profile.
func DefaultSiteProfile() SiteProfile {
	return SiteProfile{
		Brand:              "Spray Foam Kings",
		Region:             "Ontario",
		DescriptionPrefix:  "Professional spray foam insulation and fireproofing services in Ontario.",
		FilenameSuffix:     "-sprayfoam.jpg",
		DefaultImagePrompt: "Professional spray foam insulation contractor in Ontario applying foam insulation, safety equipment, high quality work, realistic photo",
		TopicImagePrompt:   "Professional spray foam insulation contractor in Toronto applying foam insulation about {topic}, safety equipment, high quality work, realistic photo, modern, clean",
		TimeZone:           "America/Toronto",
		Geo: GeoTag{
			Latitude:  "43.6532",
			Longitude: "-79.3832",
			Address:   "Toronto, Ontario, Canada",
		},
	}
}

// LoadSiteProfile reads a YAML profile from path, layered over the defaults.
// An empty path returns the defaults.
func LoadSiteProfile(path string) (SiteProfile, error) {
	p := DefaultSiteProfile()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return SiteProfile{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return SiteProfile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return SiteProfile{}, err
	}
	return p, nil
}

func (p SiteProfile) validate() error {
	if strings.TrimSpace(p.Brand) == "" {
		return fmt.Errorf("site profile: brand is required")
	}
	if !strings.HasSuffix(p.FilenameSuffix, ".jpg") {
		return fmt.Errorf("site profile: filename_suffix must end in .jpg, got %q", p.FilenameSuffix)
	}
	if !strings.Contains(p.TopicImagePrompt, "{topic}") {
		return fmt.Errorf("site profile: topic_image_prompt must contain {topic}")
	}
	if _, err := time.LoadLocation(p.TimeZone); err != nil {
		return fmt.Errorf("site profile: invalid timezone %q: %w", p.TimeZone, err)
	}
	return nil
}

// AltText is the media alt text for a post title.
func (p SiteProfile) AltText(title string) string {
	return fmt.Sprintf("%s - %s %s", title, p.Brand, p.Region)
}

// Caption is the media caption for a post title.
func (p SiteProfile) Caption(title string) string {
	return fmt.Sprintf("%s - %s", title, p.Brand)
}

// MediaDescription is the media description built from the alt text.
func (p SiteProfile) MediaDescription(alt string) string {
	return p.DescriptionPrefix + " " + alt
}

// SEOTitle is the rank_math_title meta for a post title.
func (p SiteProfile) SEOTitle(title string) string {
	return fmt.Sprintf("%s | %s", title, p.Brand)
}

// PromptForTopic fills the topic prompt template.
func (p SiteProfile) PromptForTopic(topic string) string {
	return strings.ReplaceAll(p.TopicImagePrompt, "{topic}", topic)
}

// Location returns the profile timezone, falling back to UTC.
func (p SiteProfile) Location() *time.Location {
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
