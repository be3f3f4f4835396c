package humanbytes

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	for _, entry := range []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"512B", 512},
		{"2K", 2048},
		{"2KiB", 2048},
		{"2KB", 2000},
		{"200M", 200 * 1024 * 1024},
		{"1GiB", 1 << 30},
		{" 3 G ", 3 << 30},
	} {
		got, err := Parse(entry.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", entry.in, err)
		}
		if got != entry.want {
			t.Errorf("Parse(%q) = %d, want %d", entry.in, got, entry.want)
		}
	}

	for _, in := range []string{"lots", "99999999999P", "8388608T", "-1K"} {
		if got, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) = %d, want error", in, got)
		}
	}

	// The largest representable multiple still parses.
	if got, err := Parse("8191P"); err != nil || got != 8191<<50 {
		t.Errorf("Parse(%q) = %d, %v, want %d", "8191P", got, err, int64(8191)<<50)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	for _, entry := range []struct {
		in   int64
		want string
	}{
		{0, "0B"},
		{1023, "1023B"},
		{1536, "1.50K"},
		{5 << 20, "5.00M"},
		{1 << 30, "1.00G"},
	} {
		if got := Format(entry.in); got != entry.want {
			t.Errorf("Format(%d) = %q, want %q", entry.in, got, entry.want)
		}
	}
}
