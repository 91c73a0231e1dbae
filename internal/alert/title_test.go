package alert

import "testing"

func TestRenderTitle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "trailing numeric token",
			url:  "https://wiki.example.org/index.php/Peat_Bog_42",
			want: "Peat Bog (id 42)",
		},
		{
			name: "cyrillic slug with id",
			url:  "https://wiki.example.org/index.php/Радовицкий_Мох_77",
			want: "Радовицкий Мох (id 77)",
		},
		{
			name: "percent-encoded slug",
			url:  "https://wiki.example.org/index.php/%D0%9C%D0%BE%D1%85_5",
			want: "Мох (id 5)",
		},
		{
			name: "no numeric token keeps the raw decoded text",
			url:  "https://wiki.example.org/index.php/Peat_Bog",
			want: "Peat_Bog",
		},
		{
			name: "no underscores",
			url:  "https://wiki.example.org/index.php/Bog",
			want: "Bog",
		},
		{
			name: "bare numeric slug keeps the digits",
			url:  "https://wiki.example.org/index.php/42",
			want: "42",
		},
		{
			name: "bare host fallback link",
			url:  "https://wiki.simargl-team.ru",
			want: "wiki.simargl-team.ru",
		},
		{
			name: "empty",
			url:  "",
			want: "",
		},
		{
			name: "invalid percent escape survives",
			url:  "https://wiki.example.org/index.php/Bad%zzSlug",
			want: "Bad%zzSlug",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := renderTitle(tt.url); got != tt.want {
				t.Fatalf("renderTitle(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
