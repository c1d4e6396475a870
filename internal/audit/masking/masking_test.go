package masking

import "testing"

func TestSecret(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"short", "abcd", "****"},
		{"plain", "supersecretvalue", "****alue"},
		{"xendit key", "xnd_development_F2vQxTkhgtyKyW9", "xnd_development_****KyW9"},
		{"telegram token", "123456789:AAHdiqTcvCH1vGWJxfSeoAbc", "123456789:****oAbc"},
		{"trailing separator", "prefix_", "****fix_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Secret(tc.input); got != tc.want {
				t.Fatalf("Secret(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestMapWalksNestedValues(t *testing.T) {
	input := map[string]any{
		"api_key": "xnd_development_F2vQxTkhgtyKyW9",
		"port":    8728,
		"nested": map[string]any{
			"password": "rahasia-sekali",
		},
		"list": []any{"telegram_bot_tokenvalue", 42},
		"":     "dropped",
	}

	masked := Map(input)
	if masked == nil {
		t.Fatal("Map returned nil for non-empty input")
	}
	if got := masked["api_key"]; got != "xnd_development_****KyW9" {
		t.Fatalf("api_key = %v", got)
	}
	if got := masked["port"]; got != 8728 {
		t.Fatalf("port = %v, want untouched", got)
	}
	nested, ok := masked["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested = %T", masked["nested"])
	}
	if got := nested["password"]; got == "rahasia-sekali" {
		t.Fatal("nested password not masked")
	}
	list, ok := masked["list"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("list = %v", masked["list"])
	}
	if list[0] == "telegram_bot_tokenvalue" {
		t.Fatal("list string not masked")
	}
	if _, kept := masked[""]; kept {
		t.Fatal("empty key kept")
	}

	if Map(nil) != nil {
		t.Fatal("Map(nil) should be nil")
	}
}
