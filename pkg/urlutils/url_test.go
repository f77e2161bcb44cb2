package urlutils

import "testing"

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://i.redd.it/abc.jpg", true},
		{"http://example.com", true},
		{"self", false},
		{"default", false},
		{"", false},
		{"/r/golang/comments/abc/", false},
		{"ftp://example.com/file", false},
		{"https://", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.input); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		rel     string
		want    string
		wantErr bool
	}{
		{"permalink", "https://www.reddit.com", "/r/golang/comments/abc/title/", "https://www.reddit.com/r/golang/comments/abc/title/", false},
		{"already absolute", "https://www.reddit.com", "https://old.reddit.com/r/golang/", "https://old.reddit.com/r/golang/", false},
		{"bad relative", "https://www.reddit.com", "%zz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.base, tt.rel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
