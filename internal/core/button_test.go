package core

import "testing"

func TestParseButton(t *testing.T) {
	tests := []struct {
		key  string
		want ButtonID
		ok   bool
	}{
		{"1", 1, true},
		{"4", 4, true},
		{"0", 0, false},
		{"5", 5, false},
		{"a", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseButton(tt.key)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseButton(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClassifyPage(t *testing.T) {
	tests := map[string]PageKind{
		"/playlist/37i9dQZF1DX":  PagePlaylist,
		"/collection/tracks":     PageLikedSongs,
		"/mix/37i9dQZF1E3":       PageMix,
		"/":                      PageOther,
		"/now-playing":           PageOther,
		"/album/1?from=playlist": PageOther,
	}
	for path, want := range tests {
		if got := ClassifyPage(path); got != want {
			t.Errorf("ClassifyPage(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSuppressesActivation(t *testing.T) {
	if !SuppressesActivation("/playlist/abc") || !SuppressesActivation("/collection/tracks") {
		t.Error("playlist and collection pages should suppress activation")
	}
	if SuppressesActivation("/mix/abc") || SuppressesActivation("/") {
		t.Error("mix and home pages should allow activation")
	}
}

func TestTargetForRoute(t *testing.T) {
	tests := []struct {
		route   string
		want    PlaybackTarget
		wantErr bool
	}{
		{"liked-songs", PlaybackTarget{Kind: TargetLikedSongs}, false},
		{"/playlist/abc123", PlaybackTarget{Kind: TargetPlaylist, ID: "abc123"}, false},
		{"/mix/xyz/", PlaybackTarget{Kind: TargetPlaylist, ID: "xyz"}, false},
		{"", PlaybackTarget{}, true},
		{"/", PlaybackTarget{}, true},
	}
	for _, tt := range tests {
		got, err := TargetForRoute(tt.route)
		if (err != nil) != tt.wantErr {
			t.Errorf("TargetForRoute(%q) error = %v", tt.route, err)
			continue
		}
		if got != tt.want {
			t.Errorf("TargetForRoute(%q) = %+v, want %+v", tt.route, got, tt.want)
		}
	}
	target, _ := TargetForRoute("/playlist/abc")
	if target.ContextURI() != "spotify:playlist:abc" {
		t.Errorf("ContextURI() = %q", target.ContextURI())
	}
}
