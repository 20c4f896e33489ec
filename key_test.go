package formsaver

import "testing"

func TestResolveKeyPrecedence(t *testing.T) {
	location := LocationFunc(func() string { return "/signup" })
	blank := LocationFunc(func() string { return "  " })

	cases := []struct {
		name     string
		settings Settings
		location LocationProvider
		want     string
	}{
		{"explicit key wins", Settings{}.Apply(WithKey("mine"), WithAutoKey(true)), location, "mine"},
		{"auto key from location", Settings{}.Apply(WithAutoKey(true)), location, "form:/signup"},
		{"auto key empty location", Settings{}.Apply(WithAutoKey(true)), blank, "form:/"},
		{"auto key without provider", Settings{}.Apply(WithAutoKey(true)), nil, DefaultFallbackKey},
		{"auto key disabled", Settings{}.Apply(WithAutoKey(false)), location, DefaultFallbackKey},
		{"nothing set", Settings{}, nil, DefaultFallbackKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveKey(tc.settings, tc.location, DefaultAutoKeyPrefix, DefaultFallbackKey)
			if got != tc.want {
				t.Fatalf("want %q got %q", tc.want, got)
			}
		})
	}
}

func TestServiceKeyUsesConfiguredPrefixAndFallback(t *testing.T) {
	svc := NewService(Config{
		Location:      LocationFunc(func() string { return "/a" }),
		AutoKeyPrefix: "draft:",
		FallbackKey:   "drafts",
	})
	if got := svc.Key(Settings{}.Apply(WithAutoKey(true))); got != "draft:/a" {
		t.Fatalf("unexpected auto key %q", got)
	}
	if got := svc.Key(Settings{}); got != "drafts" {
		t.Fatalf("unexpected fallback key %q", got)
	}
}
