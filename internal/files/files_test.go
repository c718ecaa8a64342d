package files

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	st, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	name, err := st.Save(ctx, "hw.pdf", strings.NewReader("homework content"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(name, "_hw.pdf") {
		t.Errorf("stored name = %q, want *_hw.pdf", name)
	}

	rc, err := st.Open(ctx, name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "homework content" {
		t.Errorf("content = %q", data)
	}
}

func TestLocalStoreUniqueNames(t *testing.T) {
	st, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	a, err := st.Save(ctx, "hw.pdf", strings.NewReader("first"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := st.Save(ctx, "hw.pdf", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if a == b {
		t.Errorf("same stored name for two uploads: %q", a)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hw.pdf", "hw.pdf"},
		{"../../etc/passwd", "passwd"},
		{"урок3.pdf", "____3.pdf"},
		{"", "upload"},
		{".", "upload"},
		{"..", "upload"},
		{"a b?c.txt", "a_b_c.txt"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
