package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pfamflow/pfam-int/internal/diskspace"
	"github.com/pfamflow/pfam-int/internal/http"
	"github.com/pfamflow/pfam-int/internal/models"
	"github.com/pfamflow/pfam-int/internal/validation"
)

// DefaultArchiveName is used when the server does not name the results archive.
const DefaultArchiveName = "all_results.zip"

// ReaderWrapper lets callers observe bytes as they are streamed, typically to
// drive a progress bar. size is -1 when unknown.
type ReaderWrapper func(name string, size int64, r io.Reader) io.Reader

// UploadFiles streams the given sequence files to the server as one multipart
// request (POST /upload, field "files[]"). The batch must already have passed
// validation.ValidateFileSet; names are re-checked here because they become
// server-side paths.
//
// The body is regenerated for every attempt, so retries resend every file.
func (c *Client) UploadFiles(ctx context.Context, files []models.FileCandidate, wrap ReaderWrapper) (*models.UploadResult, error) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := validation.ValidateFilename(f.Name); err != nil {
			return nil, err
		}
		names = append(names, f.Name)
	}

	boundary := multipart.NewWriter(io.Discard).Boundary()
	body := func() (io.Reader, error) {
		return &lazyBody{start: func() *io.PipeReader {
			pr, pw := io.Pipe()
			go func() {
				pw.CloseWithError(writeMultipart(pw, boundary, files, wrap))
			}()
			return pr
		}}, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.URL("/upload"), retryablehttp.ReaderFunc(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req.Header.Set("User-Agent", userAgent())

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}
	c.track("/upload")

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return nil, &TransportError{Op: "upload", StatusCode: resp.StatusCode}
	}

	c.logger.Info().Int("files", len(names)).Msg("Upload complete")
	return &models.UploadResult{
		Files:    names,
		Accepted: len(names),
		Message:  fmt.Sprintf("Successfully uploaded %d files", len(names)),
	}, nil
}

// lazyBody defers producing the multipart stream until the first Read.
// retryablehttp opens and closes the body once up front to probe its length,
// and that probe must not open files or start progress bars.
type lazyBody struct {
	once  sync.Once
	start func() *io.PipeReader
	pr    *io.PipeReader
}

func (b *lazyBody) Read(p []byte) (int, error) {
	b.once.Do(func() { b.pr = b.start() })
	return b.pr.Read(p)
}

func (b *lazyBody) Close() error {
	b.once.Do(func() {})
	if b.pr == nil {
		return nil
	}
	return b.pr.Close()
}

func writeMultipart(w io.Writer, boundary string, files []models.FileCandidate, wrap ReaderWrapper) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return err
	}

	for _, f := range files {
		if err := writePart(mw, f, wrap); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, f models.FileCandidate, wrap ReaderWrapper) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	part, err := mw.CreateFormFile("files[]", f.Name)
	if err != nil {
		return err
	}

	var r io.Reader = src
	if wrap != nil {
		r = wrap(f.Name, f.SizeBytes, src)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to send %s: %w", f.Name, err)
	}
	return nil
}

// DownloadAll fetches the zipped results (GET /download_all) into destDir and
// returns the written path. Failed attempts are retried with backoff; the
// archive is written to a temporary file and renamed once complete.
func (c *Client) DownloadAll(ctx context.Context, destDir string, wrap ReaderWrapper) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	var written string
	cfg := http.DefaultConfig()
	cfg.OnRetry = func(attempt int, err error, errType http.ErrorType) {
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("class", errType.String()).Msg("Retrying results download")
	}

	err := http.ExecuteWithRetry(ctx, cfg, func() error {
		path, err := c.downloadOnce(ctx, destDir, wrap)
		if err != nil {
			return err
		}
		written = path
		return nil
	})
	if err != nil {
		return "", err
	}
	return written, nil
}

func (c *Client) downloadOnce(ctx context.Context, destDir string, wrap ReaderWrapper) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	c.track("/download_all")

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.URL("/download_all"), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())

	resp, err := c.transferClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &TransportError{Op: "download", StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	name := archiveName(resp.Header.Get("Content-Disposition"))
	dest := filepath.Join(destDir, name)
	if err := validation.ValidatePathInDirectory(dest, destDir); err != nil {
		return "", err
	}
	if err := diskspace.CheckAvailableSpace(dest, resp.ContentLength, diskspace.DefaultSafetyMargin); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(destDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	var r io.Reader = resp.Body
	if wrap != nil {
		r = wrap(name, resp.ContentLength, resp.Body)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", &TransportError{Op: "download", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("failed to move archive into place: %w", err)
	}
	return dest, nil
}

// archiveName picks the file name from a Content-Disposition header, falling
// back to DefaultArchiveName when it is missing or unsafe.
func archiveName(disposition string) string {
	if disposition == "" {
		return DefaultArchiveName
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return DefaultArchiveName
	}
	name := filepath.Base(params["filename"])
	if name == "." || validation.ValidateFilename(name) != nil {
		return DefaultArchiveName
	}
	return name
}
