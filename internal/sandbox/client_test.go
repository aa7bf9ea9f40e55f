package sandbox_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ptoj-judger/internal/model"
	"ptoj-judger/internal/sandbox"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*sandbox.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := sandbox.NewClient(sandbox.Config{BaseURL: srv.URL})
	return c, srv
}

func TestClientRun(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req model.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Cmd) != 1 {
			t.Fatalf("expected 1 command, got %d", len(req.Cmd))
		}
		results := []model.SandboxResult{{Status: model.StatusAccepted, ExitStatus: 0, Time: 10, Memory: 1024}}
		_ = json.NewEncoder(w).Encode(results)
	})
	defer srv.Close()
	defer c.Close()

	results, err := c.Run(context.Background(), model.RunRequest{Cmd: []model.SandboxCmd{{Args: []string{"./Main"}}}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 || results[0].Status != model.StatusAccepted {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestClientUploadDownloadDeleteFile(t *testing.T) {
	t.Parallel()

	var deleted bool
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/file":
			_ = json.NewEncoder(w).Encode("file-abc")
		case r.Method == http.MethodGet && r.URL.Path == "/file/file-abc":
			_, _ = w.Write([]byte("payload"))
		case r.Method == http.MethodDelete && r.URL.Path == "/file/file-abc":
			deleted = true
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	defer srv.Close()
	defer c.Close()

	ctx := context.Background()
	id, err := c.UploadFile(ctx, "main.cpp", []byte("int main(){}"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if id != "file-abc" {
		t.Fatalf("unexpected file id: %s", id)
	}

	body, err := c.DownloadFile(ctx, id)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("unexpected body: %s", body)
	}

	if err := c.DeleteFile(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatalf("expected delete request to reach server")
	}
}

func TestClientNonTwoXXReturnsSandboxError(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	defer srv.Close()
	defer c.Close()

	_, err := c.Version(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	sandboxErr, ok := err.(*sandbox.SandboxError)
	if !ok {
		t.Fatalf("expected *sandbox.SandboxError, got %T: %v", err, err)
	}
	if sandboxErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", sandboxErr.Status)
	}
}

func TestClientVersion(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(model.VersionInfo{BuildVersion: "1.2.3"})
	})
	defer srv.Close()
	defer c.Close()

	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v.BuildVersion != "1.2.3" {
		t.Fatalf("unexpected version: %+v", v)
	}
}
