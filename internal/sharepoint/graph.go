package sharepoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// APIError is a non-2xx Graph response with its raw body.
type APIError struct {
	Status   int
	Endpoint string
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error: %s returned %d: %s", e.Endpoint, e.Status, strings.TrimSpace(e.Body))
}

// Client issues authenticated GET requests against Graph.
type Client struct {
	BaseURL string
	Token   string
	// HTTP serves API calls and bounds each call as a whole.
	HTTP *http.Client
	// Transfer serves content downloads. Only the wait for response headers
	// is bounded; a body may stream for as long as ctx allows.
	Transfer *http.Client
	Log      *zap.Logger
}

const (
	apiTimeout            = 60 * time.Second
	transferHeaderTimeout = 60 * time.Second
)

func newTransferClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = transferHeaderTimeout
	return &http.Client{Transport: transport}
}

// NewClient returns a Client for baseURL, or Graph v1.0 when empty.
func NewClient(baseURL, token string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		HTTP:     &http.Client{Timeout: apiTimeout},
		Transfer: newTransferClient(),
		Log:      log,
	}
}

// Site is a SharePoint site collection.
type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

// Drive is a document library.
type Drive struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity names the user behind a change.
type Identity struct {
	User struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

// Item is a drive item: a file or a folder.
type Item struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Size                 int64    `json:"size"`
	WebURL               string   `json:"webUrl"`
	CreatedDateTime      string   `json:"createdDateTime"`
	LastModifiedDateTime string   `json:"lastModifiedDateTime"`
	CreatedBy            Identity `json:"createdBy"`
	LastModifiedBy       Identity `json:"lastModifiedBy"`
	Folder               *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder,omitempty"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl"`
}

// IsFolder reports whether the item is a folder.
func (i Item) IsFolder() bool { return i.Folder != nil }

// IsFile reports whether the item is a file.
func (i Item) IsFile() bool { return i.File != nil }

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", requestID)

	c.Log.Debug("graph request", zap.String("endpoint", endpoint), zap.String("client_request_id", requestID))
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Endpoint: endpoint, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", endpoint, err)
	}
	return nil
}

// Site resolves a site by host and server-relative path.
func (c *Client) Site(ctx context.Context, host, sitePath string) (Site, error) {
	var site Site
	err := c.get(ctx, "/sites/"+host+":"+sitePath, &site)
	return site, err
}

// Drives lists the document libraries of a site.
func (c *Client) Drives(ctx context.Context, siteID string) ([]Drive, error) {
	var page struct {
		Value []Drive `json:"value"`
	}
	if err := c.get(ctx, "/sites/"+siteID+"/drives", &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// Children lists a folder; rel is relative to the drive root.
func (c *Client) Children(ctx context.Context, driveID, rel string) ([]Item, error) {
	var page struct {
		Value []Item `json:"value"`
	}
	if err := c.get(ctx, drivePathEndpoint(driveID, rel, ":/children"), &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// Item fetches one drive item; rel is relative to the drive root.
func (c *Client) Item(ctx context.Context, driveID, rel string) (Item, error) {
	var item Item
	err := c.get(ctx, drivePathEndpoint(driveID, rel, ""), &item)
	return item, err
}

// ErrNoDownloadURL is returned for items Graph offers no content link for.
var ErrNoDownloadURL = errors.New("no download URL available")

// Download streams item's content into dir and returns the written path.
// The pre-authenticated download URL is fetched without the bearer token.
func (c *Client) Download(ctx context.Context, item Item, dir string) (string, int64, error) {
	if item.DownloadURL == "" {
		return "", 0, ErrNoDownloadURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.DownloadURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	transfer := c.Transfer
	if transfer == nil {
		transfer = newTransferClient()
	}
	resp, err := transfer.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", 0, &APIError{Status: resp.StatusCode, Endpoint: "download " + item.Name, Body: string(body)}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, filepath.Base(item.Name))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr != nil {
			return "", 0, fmt.Errorf("download failed: %w", copyErr)
		}
		return "", 0, closeErr
	}
	return path, n, nil
}
