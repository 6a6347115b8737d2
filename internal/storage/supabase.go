package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseStorage talks to the Supabase Storage REST API of one project.
type SupabaseStorage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseStorage creates a new Supabase Storage client. baseURL is the project URL,
// e.g. https://<ref>.supabase.co
func NewSupabaseStorage(baseURL, apiKey string) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

// SignURL asks storage for a time-limited download URL of a private object.
func (s *SupabaseStorage) SignURL(ctx context.Context, bucket, path string, expiry time.Duration) (string, error) {
	endpoint := s.objectURL("sign", bucket, path)

	body, err := json.Marshal(signRequest{ExpiresIn: int(expiry.Seconds())})
	if err != nil {
		return "", fmt.Errorf("failed to encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to sign object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sign failed with status %d: %s", resp.StatusCode, string(b))
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode sign response: %w", err)
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("sign response carried no url")
	}

	// signedURL is relative to the storage API root
	return s.baseURL + "/storage/v1" + out.SignedURL, nil
}

// UploadFile uploads a file to a bucket and returns the storage path on success.
func (s *SupabaseStorage) UploadFile(ctx context.Context, bucket, path string, file io.Reader, contentType string) (string, error) {
	endpoint := s.objectURL("", bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(b))
	}

	return path, nil
}

// DeleteFile removes a file from a bucket.
func (s *SupabaseStorage) DeleteFile(ctx context.Context, bucket, path string) error {
	endpoint := s.objectURL("", bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(b))
	}

	return nil
}

func (s *SupabaseStorage) authorize(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("apikey", s.apiKey)
}

func (s *SupabaseStorage) objectURL(action, bucket, path string) string {
	escaped := (&url.URL{Path: strings.TrimLeft(path, "/")}).EscapedPath()
	if action == "" {
		return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, escaped)
	}
	return fmt.Sprintf("%s/storage/v1/object/%s/%s/%s", s.baseURL, action, bucket, escaped)
}
