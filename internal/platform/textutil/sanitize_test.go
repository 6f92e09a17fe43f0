package textutil

import "testing"

func TestPlainText(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "empty", in: "   ", want: ""},
		{name: "plain", in: " Packed at Pongalur ", want: "Packed at Pongalur"},
		{name: "markup", in: "<b>Handle</b> with care<script>alert(1)</script>", want: "Handle with care"},
		{name: "whitespace", in: "Out\nfor\t\tdelivery", want: "Out for delivery"},
		{name: "truncate", in: "Tiruppur → Coimbatore", limit: 10, want: "Tiruppur →"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.in, tc.limit); got != tc.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
