package foundry

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilesUploadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart content type, got %s", r.Header.Get("Content-Type"))
		}
		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("multipart reader: %v", err)
			return
		}
		seenFile := false
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("read part: %v", err)
				return
			}
			content, _ := io.ReadAll(part)
			switch part.FormName() {
			case "purpose":
				if string(content) != FilePurposeAgents {
					t.Errorf("unexpected purpose %s", content)
				}
			case "file":
				seenFile = true
				if part.FileName() != "glossary.txt" {
					t.Errorf("unexpected filename %q", part.FileName())
				}
				if !strings.HasPrefix(part.Header.Get("Content-Type"), "text/plain") {
					t.Errorf("unexpected content type %q", part.Header.Get("Content-Type"))
				}
				if string(content) != "hello world" {
					t.Errorf("unexpected file content: %s", content)
				}
			}
			part.Close()
		}
		if !seenFile {
			t.Errorf("expected to see file upload")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file_1","object":"file","bytes":11,"filename":"glossary.txt","purpose":"assistants"}`))
	}))
	defer server.Close()

	client, err := NewClientWithConfig(testConfig(server.URL, &fakeCredential{token: "tok"}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	info, err := client.Files.UploadWithContext(context.Background(), FileUpload{Path: path}, "")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if info.ID != "file_1" || info.Bytes != 11 {
		t.Fatalf("unexpected response: %+v", info)
	}
}

func TestFilesUploadFromReaderSniffsType(t *testing.T) {
	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("multipart reader: %v", err)
			return
		}
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			if part.FormName() == "file" {
				if part.FileName() != "upload" {
					t.Errorf("expected default filename, got %q", part.FileName())
				}
				if !strings.HasPrefix(part.Header.Get("Content-Type"), "application/pdf") {
					t.Errorf("expected sniffed pdf type, got %q", part.Header.Get("Content-Type"))
				}
			}
			part.Close()
		}
		_, _ = w.Write([]byte(`{"id":"file_2"}`))
	}))
	defer server.Close()

	client, err := NewClientWithConfig(testConfig(server.URL, &fakeCredential{token: "tok"}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	info, err := client.Files.Upload(FileUpload{Reader: strings.NewReader("%PDF-1.7 fake")}, "assistants")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if info.ID != "file_2" {
		t.Fatalf("unexpected id %s", info.ID)
	}
}

func TestFileUploadValidation(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	big := filepath.Join(dir, "big.txt")
	_ = os.WriteFile(empty, nil, 0o600)
	_ = os.WriteFile(big, []byte("0123456789"), 0o600)

	tests := []struct {
		name   string
		upload FileUpload
		want   string
	}{
		{"Nothing", FileUpload{}, "requires Path or Reader"},
		{"Both", FileUpload{Path: big, Reader: strings.NewReader("x")}, "not both"},
		{"Directory", FileUpload{Path: dir}, "directory"},
		{"Empty", FileUpload{Path: empty}, "is empty"},
		{"TooLarge", FileUpload{Path: big, MaxBytes: 5}, "exceeds max size"},
		{"Missing", FileUpload{Path: filepath.Join(dir, "nope")}, "open file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := tt.upload.open()
			if err == nil {
				rc.Close()
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}
