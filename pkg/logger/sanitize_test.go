package logger

import "testing"

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@b.io", "a@*.io"},
		{"not-an-email", "[invalid-email]"},
	}

	for _, tt := range tests {
		if got := SanitizedEmail(tt.in); got != tt.want {
			t.Errorf("SanitizedEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizedPhone(t *testing.T) {
	if got := SanitizedPhone("+254712345678"); got != "***********78" {
		t.Errorf("unexpected mask: %q", got)
	}
	if got := SanitizedPhone("12"); got != "[invalid-phone]" {
		t.Errorf("expected invalid marker, got %q", got)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	if !SanitizeQueryString("token=abc123") {
		t.Error("token parameter should be flagged")
	}
	if SanitizeQueryString("page=2&sort=asc") {
		t.Error("benign query should pass")
	}
}
