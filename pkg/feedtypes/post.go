// Package feedtypes provides the Reddit listing and post types shared by the
// fetch client, the feed store and its consumers.
package feedtypes

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/lepinkainen/reddit-feeds/pkg/urlutils"
)

// RedditBaseURL is the site permalinks are resolved against.
const RedditBaseURL = "https://www.reddit.com"

// Post is a single Reddit post as returned inside a listing child.
// The feed store treats it as an opaque record.
type Post struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Title        string       `json:"title"`
	URL          string       `json:"url"`
	Permalink    string       `json:"permalink"`
	Author       string       `json:"author"`
	Subreddit    string       `json:"subreddit"`
	SelfText     string       `json:"selftext"`
	SelfTextHTML string       `json:"selftext_html"`
	Thumbnail    string       `json:"thumbnail"`
	CreatedUTC   float64      `json:"created_utc"`
	Score        int          `json:"score"`
	NumComments  int          `json:"num_comments"`
	Over18       bool         `json:"over_18"`
	Stickied     bool         `json:"stickied"`
	IsSelf       bool         `json:"is_self"`
	Preview      *PreviewData `json:"preview,omitempty"`
}

// PreviewData represents Reddit's preview image data structure
type PreviewData struct {
	Images []PreviewImage `json:"images"`
}

// PreviewImage represents a single preview image with different resolutions
type PreviewImage struct {
	Source      ImageSource   `json:"source"`
	Resolutions []ImageSource `json:"resolutions"`
}

// ImageSource represents an image URL with dimensions
type ImageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Child wraps a post inside a listing.
type Child struct {
	Kind string `json:"kind"`
	Data Post   `json:"data"`
}

// Listing is the success payload of a subreddit fetch:
// { data: { children: [ { data: Post } ] } }
type Listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []Child `json:"children"`
		After    string  `json:"after"`
		Before   string  `json:"before"`
	} `json:"data"`
}

// Posts extracts the ordered posts from the listing children.
// The result is never nil, so an empty listing still counts as fetched.
func (l *Listing) Posts() []Post {
	if l == nil {
		return []Post{}
	}
	return lo.Map(l.Data.Children, func(c Child, _ int) Post {
		return c.Data
	})
}

// CommentsLink returns the absolute URL of the comment thread
func (p *Post) CommentsLink() string {
	if p.Permalink == "" {
		return ""
	}
	link, err := urlutils.ResolveURL(RedditBaseURL, p.Permalink)
	if err != nil {
		return ""
	}
	return link
}

// CreatedAt returns the post creation time
func (p *Post) CreatedAt() time.Time {
	if p.CreatedUTC == 0 {
		return time.Time{}
	}
	return time.Unix(int64(p.CreatedUTC), 0)
}

// Category returns the subreddit in r/ format
func (p *Post) Category() string {
	if p.Subreddit == "" {
		return ""
	}
	return fmt.Sprintf("r/%s", p.Subreddit)
}

// ImageURL returns the best available image URL for the post
func (p *Post) ImageURL() string {
	// Prefer preview image if available (higher quality)
	if p.Preview != nil && len(p.Preview.Images) > 0 {
		if source := p.Preview.Images[0].Source; source.URL != "" {
			return source.URL
		}
	}

	// thumbnail may be a placeholder such as "self" or "nsfw"
	if urlutils.IsValidURL(p.Thumbnail) {
		return p.Thumbnail
	}
	return ""
}

// Content returns the cleaned selftext HTML for the post
func (p *Post) Content() string {
	if p.SelfTextHTML == "" || p.SelfTextHTML == "null" {
		return ""
	}
	return cleanRedditHTML(p.SelfTextHTML)
}

// cleanRedditHTML removes Reddit-specific HTML comments and decodes HTML entities
func cleanRedditHTML(htmlContent string) string {
	// Reddit double-encodes ampersands when raw_json is not set
	htmlContent = strings.ReplaceAll(htmlContent, "&amp;amp;", "&amp;")
	htmlContent = html.UnescapeString(htmlContent)

	htmlContent = strings.ReplaceAll(htmlContent, "<!-- SC_OFF -->", "")
	htmlContent = strings.ReplaceAll(htmlContent, "<!-- SC_ON -->", "")

	return strings.TrimSpace(htmlContent)
}
