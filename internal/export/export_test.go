package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/koopa0/atelier/internal/artifact"
)

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	files := make(map[string]string, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		files[f.Name] = string(body)
	}
	return files
}

func TestArchive_AllKinds(t *testing.T) {
	set := artifact.Set{
		Component:  "func Btn() ui.Node { return ui.Text(\"hi\") }",
		Stylesheet: ".btn{color:red}",
		Markup:     "<p>fallback</p>",
	}

	data, err := Archive(set, "Btn")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	files := readArchive(t, data)
	if len(files) != 3 {
		t.Fatalf("archive has %d files, want 3", len(files))
	}
	if files["Btn.go"] != set.Component {
		t.Errorf("Btn.go = %q", files["Btn.go"])
	}
	if files["Btn.css"] != set.Stylesheet {
		t.Errorf("Btn.css = %q", files["Btn.css"])
	}
	if files["Btn.html"] != set.Markup {
		t.Errorf("Btn.html = %q", files["Btn.html"])
	}
}

func TestArchive_SentinelKindsSkipped(t *testing.T) {
	set := artifact.EmptySet()
	set.Component = "func Btn() ui.Node { return ui.Text(\"hi\") }"

	data, err := Archive(set, "Btn")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	files := readArchive(t, data)
	if len(files) != 1 {
		t.Errorf("archive has %d files, want only the component", len(files))
	}
	if _, ok := files["Btn.go"]; !ok {
		t.Error("component file missing")
	}
}

func TestArchive_DefaultBaseName(t *testing.T) {
	set := artifact.EmptySet()
	set.Stylesheet = ".a{}"

	data, err := Archive(set, "")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, ok := readArchive(t, data)["component.css"]; !ok {
		t.Error("default base name not applied")
	}
}

func TestArchive_EmptySet(t *testing.T) {
	_, err := Archive(artifact.EmptySet(), "Btn")
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("err = %v, want ErrNothingToExport", err)
	}
}
