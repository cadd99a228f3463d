package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/models"
)

// HTTPClient posts files to the archive server's /add/<category> routes.
type HTTPClient struct {
	BaseURL  string
	Password string
	Client   *http.Client
}

func NewHTTPClient(baseURL, password string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Password: password,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Upload streams the file as a multipart form with "password" and "file"
// fields. Transport errors and non-2xx responses match apperr.ErrUpload.
func (c *HTTPClient) Upload(ctx context.Context, path string, category models.Category) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload: open %s: %w", path, err)
	}
	name := filepath.Base(path)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeForm(mw, f, name, c.Password))
	}()

	url := c.BaseURL + "/add/" + string(category)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperr.ErrUpload, category, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %s: %s", apperr.ErrUpload, category, name, resp.Status, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func writeForm(mw *multipart.Writer, r io.Reader, name, password string) error {
	if err := mw.WriteField("password", password); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}
