package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"zodiac/models"
)

// Client is the HTTP client for talking to the zodiac server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new HTTP client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope mirrors the server's response wrapper. Data stays raw until the
// caller knows the concrete type.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// doRequest executes an HTTP request
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	url := c.baseURL + path
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}

	return resp, nil
}

// handleResponse unwraps the response envelope into result
func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("HTTP %d: failed to decode response: %v", resp.StatusCode, err)
	}

	if env.Code != "OK" {
		detail := ""
		var data struct {
			Detail any `json:"detail"`
		}
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil && data.Detail != nil {
			detail = fmt.Sprintf(": %v", data.Detail)
		}
		return fmt.Errorf("%s: %s%s", env.Code, env.Message, detail)
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %v", err)
		}
	}
	return nil
}

// HealthCheck pings the health endpoint
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/api/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("server unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Preferences API

func (c *Client) GetPreferences() (*models.PreferencesRead, error) {
	resp, err := c.doRequest("GET", "/api/preferences", nil)
	if err != nil {
		return nil, err
	}

	var prefs models.PreferencesRead
	if err := c.handleResponse(resp, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (c *Client) UpdatePreferences(req models.PreferencesUpdate) (*models.PreferencesRead, error) {
	resp, err := c.doRequest("PUT", "/api/preferences", req)
	if err != nil {
		return nil, err
	}

	var prefs models.PreferencesRead
	if err := c.handleResponse(resp, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (c *Client) GetSteamID() (string, error) {
	resp, err := c.doRequest("GET", "/api/steam/id", nil)
	if err != nil {
		return "", err
	}

	var data struct {
		SteamID64 string `json:"steam_id_64"`
	}
	if err := c.handleResponse(resp, &data); err != nil {
		return "", err
	}
	return data.SteamID64, nil
}

// Game API

func (c *Client) GetPaths() (*models.GamePathsRead, error) {
	resp, err := c.doRequest("GET", "/api/paths", nil)
	if err != nil {
		return nil, err
	}

	var paths models.GamePathsRead
	if err := c.handleResponse(resp, &paths); err != nil {
		return nil, err
	}
	return &paths, nil
}

func (c *Client) ListSaves() ([]models.SaveGameRead, error) {
	resp, err := c.doRequest("GET", "/api/saves", nil)
	if err != nil {
		return nil, err
	}

	var saves []models.SaveGameRead
	if err := c.handleResponse(resp, &saves); err != nil {
		return nil, err
	}
	return saves, nil
}

func (c *Client) ListArchives() ([]string, error) {
	resp, err := c.doRequest("GET", "/api/archives", nil)
	if err != nil {
		return nil, err
	}

	var archives []string
	if err := c.handleResponse(resp, &archives); err != nil {
		return nil, err
	}
	return archives, nil
}

func (c *Client) GetArchiveEntries(path string) ([]models.ArchiveEntryRead, error) {
	resp, err := c.doRequest("GET", "/api/archives/entries?path="+url.QueryEscape(path), nil)
	if err != nil {
		return nil, err
	}

	var entries []models.ArchiveEntryRead
	if err := c.handleResponse(resp, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) CheckMod(path string) (*models.ModCheckRead, error) {
	resp, err := c.doRequest("POST", "/api/mods/check", models.ModCheckRequest{Path: path})
	if err != nil {
		return nil, err
	}

	var result models.ModCheckRead
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) FixMod(path string) (*models.ModCheckRead, error) {
	resp, err := c.doRequest("POST", "/api/mods/fix", models.ModCheckRequest{Path: path})
	if err != nil {
		return nil, err
	}

	var result models.ModCheckRead
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Session API

func (c *Client) Launch() (*models.LaunchRead, error) {
	resp, err := c.doRequest("POST", "/api/launch", nil)
	if err != nil {
		return nil, err
	}

	var session models.LaunchRead
	if err := c.handleResponse(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) ListSessions() ([]models.LaunchRead, error) {
	resp, err := c.doRequest("GET", "/api/launches", nil)
	if err != nil {
		return nil, err
	}

	var sessions []models.LaunchRead
	if err := c.handleResponse(resp, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) StopSession(id string) error {
	resp, err := c.doRequest("POST", "/api/launches/"+id+"/stop", nil)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

// Update API

// UpdateCheckRead mirrors the server's update check payload.
type UpdateCheckRead struct {
	Decision        string `json:"decision"`
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url"`
	FetchError      string `json:"fetch_error"`
}

// UpdatePromptRead mirrors the server's pending prompt payload.
type UpdatePromptRead struct {
	Pending       bool   `json:"pending"`
	RemoteVersion string `json:"remote_version"`
	ReleaseURL    string `json:"release_url"`
	ReleaseNotes  string `json:"release_notes"`
	PublishedAt   string `json:"published_at"`
}

func (c *Client) CheckUpdate() (*UpdateCheckRead, error) {
	resp, err := c.doRequest("GET", "/api/update/check", nil)
	if err != nil {
		return nil, err
	}

	var result UpdateCheckRead
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetUpdatePrompt() (*UpdatePromptRead, error) {
	resp, err := c.doRequest("GET", "/api/update/prompt", nil)
	if err != nil {
		return nil, err
	}

	var result UpdatePromptRead
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RespondUpdatePrompt(response string) error {
	resp, err := c.doRequest("POST", "/api/update/prompt/response", map[string]string{"response": response})
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

func (c *Client) GenerateUpdateCode() (string, error) {
	resp, err := c.doRequest("POST", "/api/update/code", nil)
	if err != nil {
		return "", err
	}

	var data struct {
		Code      string `json:"code"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := c.handleResponse(resp, &data); err != nil {
		return "", err
	}
	return data.Code, nil
}

func (c *Client) ApplyUpdate(code string) (string, error) {
	resp, err := c.doRequest("POST", "/api/update/apply", map[string]string{"code": code})
	if err != nil {
		return "", err
	}

	var data struct {
		OK            bool   `json:"ok"`
		TargetVersion string `json:"target_version"`
		Message       string `json:"message"`
	}
	if err := c.handleResponse(resp, &data); err != nil {
		return "", err
	}
	return data.TargetVersion, nil
}

// Error log API

func (c *Client) GetErrorLogs() ([]map[string]any, error) {
	resp, err := c.doRequest("GET", "/api/error-logs", nil)
	if err != nil {
		return nil, err
	}

	var logs []map[string]any
	if err := c.handleResponse(resp, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) ClearErrorLogs() error {
	resp, err := c.doRequest("DELETE", "/api/error-logs", nil)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}
