// Command client runs a smoke test against a running service: register, log
// in, upload, list, share by short link, download anonymously and delete.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud-storage/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.Header, &apiError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		switch v := out.(type) {
		case *[]byte:
			*v = data
		default:
			if err := json.Unmarshal(data, out); err != nil {
				return resp.Header, fmt.Errorf("decode %s %s: %w", method, path, err)
			}
		}
	}
	return resp.Header, nil
}

func (c *client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json", out)
	return err
}

type file struct {
	ID           string  `json:"id"`
	OriginalName string  `json:"original_name"`
	Size         int64   `json:"size"`
	ShortLink    *string `json:"short_link"`
}

func (c *client) upload(ctx context.Context, name string, content []byte, comment string) (*file, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("comment", comment); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var f file
	if _, err := c.do(ctx, http.MethodPost, "/files/", &buf, mw.FormDataContentType(), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func run(ctx context.Context, base string) error {
	log := logger.GetLogger(ctx)
	c := &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 30 * time.Second}}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	username := "smoke_" + suffix
	password := "Smoke1!" + suffix

	if err := c.postJSON(ctx, "/auth/register/", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	}, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	log.Info("registered", zap.String("username", username))

	var tokens struct {
		UserID uint32 `json:"user_id"`
		Access string `json:"access"`
	}
	if err := c.postJSON(ctx, "/auth/login/", map[string]string{"username": username, "password": password}, &tokens); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = tokens.Access
	log.Info("logged in", zap.Uint32("user_id", tokens.UserID))

	content := []byte("smoke test payload " + suffix)
	f, err := c.upload(ctx, "smoke.txt", content, "uploaded by the smoke client")
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if f.Size != int64(len(content)) {
		return fmt.Errorf("upload: size %d, want %d", f.Size, len(content))
	}
	log.Info("uploaded", zap.String("file_id", f.ID), zap.Int64("size", f.Size))

	var page struct {
		Count int `json:"count"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/files/", nil, "", &page); err != nil {
		return fmt.Errorf("list: %w", err)
	}
	log.Info("listed", zap.Int("count", page.Count))

	var link struct {
		ShortLink string `json:"short_link"`
	}
	if err := c.postJSON(ctx, "/files/"+f.ID+"/short_link/", struct{}{}, &link); err != nil {
		return fmt.Errorf("short link: %w", err)
	}

	anon := &client{base: c.base, http: c.http}
	var body []byte
	header, err := anon.do(ctx, http.MethodGet, "/files/download/"+link.ShortLink+"/", nil, "", &body)
	if err != nil {
		return fmt.Errorf("anonymous download: %w", err)
	}
	if !bytes.Equal(body, content) {
		return fmt.Errorf("anonymous download: content mismatch")
	}
	log.Info("downloaded by short link", zap.String("content_disposition", header.Get("Content-Disposition")))

	if _, err := c.do(ctx, http.MethodDelete, "/files/"+f.ID+"/", nil, "", nil); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if _, err := anon.do(ctx, http.MethodGet, "/files/download/"+link.ShortLink+"/", nil, "", nil); err == nil {
		return fmt.Errorf("short link still resolves after delete")
	}
	log.Info("deleted", zap.String("file_id", f.ID))

	if _, err := c.do(ctx, http.MethodPost, "/auth/logout/", nil, "", nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func main() {
	base := flag.String("addr", "http://localhost:8080", "service base URL")
	flag.Parse()

	ctx, err := logger.New(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := run(ctx, *base); err != nil {
		logger.GetLogger(ctx).Error("smoke test failed", zap.Error(err))
		os.Exit(1)
	}
	logger.GetLogger(ctx).Info("smoke test passed")
}
