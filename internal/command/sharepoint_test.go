package command

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adamavenir/skillkit/internal/shell/shelltest"
)

func TestSharePointRequiresURL(t *testing.T) {
	_, err := executeCommand(NewSharePointCmd("test"))
	if err == nil || !strings.Contains(err.Error(), `required flag(s) "url" not set`) {
		t.Fatalf("expected required flag error, got %v", err)
	}
}

func TestSharePointInvalidAction(t *testing.T) {
	output, err := executeCommand(NewSharePointCmd("test"), "--url", "https://co.sharepoint.com/sites/S", "--action", "delete")
	if err == nil || !strings.Contains(output, `Error: invalid action "delete"`) {
		t.Fatalf("expected invalid action error, got %v / %q", err, output)
	}
}

func TestSharePointListAgainstGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/sites/co.sharepoint.com:/sites/S":
			_, _ = w.Write([]byte(`{"id":"site-1","name":"S","displayName":"Team"}`))
		case "/sites/site-1/drives":
			_, _ = w.Write([]byte(`{"value":[{"id":"drive-1","name":"Documents"}]}`))
		case "/drives/drive-1/root:/Specs:/children":
			_, _ = w.Write([]byte(`{"value":[{"name":"req.docx","size":4096,"file":{},"lastModifiedDateTime":"2024-05-06T00:00:00Z"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Setenv("GRAPH_BASE_URL", srv.URL)
	useRunner(t, shelltest.New().
		On("az version", shelltest.Response{Stdout: "{}"}).
		On("az account get-access-token --resource=https://graph.microsoft.com --query accessToken -o tsv", shelltest.Response{Stdout: "tok\n"}))

	output, err := executeCommand(NewSharePointCmd("test"), "--url", "https://co.sharepoint.com/sites/S/Shared%20Documents/Specs")
	if err != nil {
		t.Fatalf("expected no error, got %v\n%s", err, output)
	}
	for _, want := range []string{
		"SharePoint URL: https://co.sharepoint.com/sites/S/Shared%20Documents/Specs",
		"Site: Team (S)",
		"req.docx (4.0 KiB, modified: 2024-05-06)",
		"Done!",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestSharePointMissingAzureCLI(t *testing.T) {
	useRunner(t, shelltest.New())
	output, err := executeCommand(NewSharePointCmd("test"), "--url", "https://co.sharepoint.com/sites/S/Lib")
	if err == nil {
		t.Fatal("expected an error without az")
	}
	if !strings.Contains(output, "brew install azure-cli") {
		t.Fatalf("expected install hints:\n%s", output)
	}
}
