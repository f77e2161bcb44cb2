package feedtypes

import (
	"encoding/json"
	"testing"
	"time"
)

func TestListingPosts(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantIDs []string
	}{
		{
			name:    "single child",
			payload: `{"data":{"children":[{"data":{"id":"a"}}]}}`,
			wantIDs: []string{"a"},
		},
		{
			name:    "order preserved",
			payload: `{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"c"}},{"kind":"t3","data":{"id":"a"}},{"kind":"t3","data":{"id":"b"}}]}}`,
			wantIDs: []string{"c", "a", "b"},
		},
		{
			name:    "empty children",
			payload: `{"data":{"children":[]}}`,
			wantIDs: []string{},
		},
		{
			name:    "missing children",
			payload: `{"data":{}}`,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var listing Listing
			if err := json.Unmarshal([]byte(tt.payload), &listing); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			posts := listing.Posts()
			if posts == nil {
				t.Fatal("Posts() returned nil, want non-nil slice")
			}
			if len(posts) != len(tt.wantIDs) {
				t.Fatalf("Posts() returned %d posts, want %d", len(posts), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if posts[i].ID != id {
					t.Errorf("Posts()[%d].ID = %q, want %q", i, posts[i].ID, id)
				}
			}
		})
	}
}

func TestNilListingPosts(t *testing.T) {
	var listing *Listing
	if posts := listing.Posts(); posts == nil || len(posts) != 0 {
		t.Errorf("nil Listing.Posts() = %v, want empty slice", posts)
	}
}

func TestPostAccessors(t *testing.T) {
	post := Post{
		Permalink:  "/r/golang/comments/abc/title/",
		Subreddit:  "golang",
		CreatedUTC: 1700000000,
		Thumbnail:  "self",
	}

	if got := post.CommentsLink(); got != "https://www.reddit.com/r/golang/comments/abc/title/" {
		t.Errorf("CommentsLink() = %q", got)
	}
	if got := post.Category(); got != "r/golang" {
		t.Errorf("Category() = %q", got)
	}
	if got := post.CreatedAt(); !got.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("CreatedAt() = %v", got)
	}
	if got := post.ImageURL(); got != "" {
		t.Errorf("ImageURL() = %q, want empty for self thumbnail", got)
	}

	var empty Post
	if !empty.CreatedAt().IsZero() {
		t.Errorf("CreatedAt() on empty post should be zero")
	}
	if empty.CommentsLink() != "" {
		t.Errorf("CommentsLink() on empty post should be empty")
	}
}

func TestPostImageURL(t *testing.T) {
	tests := []struct {
		name string
		post Post
		want string
	}{
		{
			name: "preview preferred",
			post: Post{
				Thumbnail: "https://thumbs.example.com/t.jpg",
				Preview: &PreviewData{Images: []PreviewImage{
					{Source: ImageSource{URL: "https://preview.example.com/p.jpg"}},
				}},
			},
			want: "https://preview.example.com/p.jpg",
		},
		{
			name: "thumbnail fallback",
			post: Post{Thumbnail: "https://thumbs.example.com/t.jpg"},
			want: "https://thumbs.example.com/t.jpg",
		},
		{
			name: "nsfw placeholder ignored",
			post: Post{Thumbnail: "nsfw"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.post.ImageURL(); got != tt.want {
				t.Errorf("ImageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPostContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "markers removed",
			input: `<!-- SC_OFF --><div class="md"><p>Test content</p></div><!-- SC_ON -->`,
			want:  `<div class="md"><p>Test content</p></div>`,
		},
		{
			name:  "entities decoded",
			input: `&lt;p&gt;Fish &amp;amp; chips&lt;/p&gt;`,
			want:  `<p>Fish & chips</p>`,
		},
		{
			name:  "null literal",
			input: "null",
			want:  "",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := Post{SelfTextHTML: tt.input}
			if got := post.Content(); got != tt.want {
				t.Errorf("Content() = %q, want %q", got, tt.want)
			}
		})
	}
}
