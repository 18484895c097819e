package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"propledger/pkg/upload"
)

// Progress phase boundaries for the one continuous bar across three network
// calls: grant 0-10, transfer 10-80, confirm 80-100.
const (
	progressGrantDone    = 10
	progressTransferDone = 80
	progressComplete     = 100
)

// TransferError is a failed PUT against the grant URL. Unlike a validation
// error it is retryable: request a fresh grant and transfer again.
type TransferError struct {
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer failed: %v", e.Err)
	}
	return fmt.Sprintf("transfer failed: storage returned status %d", e.StatusCode)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ProgressFunc receives overall progress in percent, monotonically 0-100.
type ProgressFunc func(percent int)

// UploadFile is one capture to push through the three-step protocol.
type UploadFile struct {
	EntityType  string
	EntityID    string
	FileName    string
	ContentType string
	Data        []byte
	PropertyID  string
}

// Uploader drives the capture protocol: validate locally, request a grant,
// PUT the bytes straight to object storage, confirm. Each Upload call
// requests a fresh grant, so retrying after a TransferError never reuses a
// possibly-expired URL.
type Uploader struct {
	api        *Client
	httpClient *http.Client
}

func NewUploader(api *Client) *Uploader {
	return &Uploader{
		api: api,
		// Transfers move whole files; give them more room than API calls.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Upload runs the full protocol. Validation failures surface before any
// network call is made and are never worth retrying.
func (u *Uploader) Upload(ctx context.Context, file UploadFile, onProgress ProgressFunc) (*Receipt, error) {
	report := func(p int) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if err := upload.ValidateFile(file.ContentType, int64(len(file.Data))); err != nil {
		return nil, err
	}
	report(0)

	grant, err := u.api.RequestUploadGrant(ctx, GrantInput{
		EntityType:    file.EntityType,
		EntityID:      file.EntityID,
		ContentType:   file.ContentType,
		FileSizeBytes: int64(len(file.Data)),
		FileName:      file.FileName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request upload grant: %w", err)
	}
	report(progressGrantDone)

	if err := u.transfer(ctx, grant.UploadURL, file, report); err != nil {
		return nil, err
	}
	report(progressTransferDone)

	receipt, err := u.api.ConfirmUpload(ctx, ConfirmInput{
		StorageKey:          grant.StorageKey,
		ThumbnailStorageKey: grant.ThumbnailStorageKey,
		ContentType:         file.ContentType,
		FileSizeBytes:       int64(len(file.Data)),
		OriginalFileName:    file.FileName,
		PropertyID:          file.PropertyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm upload: %w", err)
	}
	report(progressComplete)

	return receipt, nil
}

// transfer is the single direct PUT against the grant URL. No intermediate
// service sees the bytes.
func (u *Uploader) transfer(ctx context.Context, uploadURL string, file UploadFile, report ProgressFunc) error {
	body := &progressReader{
		reader: bytes.NewReader(file.Data),
		total:  int64(len(file.Data)),
		report: report,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return &TransferError{Err: err}
	}
	req.Header.Set("Content-Type", file.ContentType)
	req.ContentLength = int64(len(file.Data))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return &TransferError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransferError{StatusCode: resp.StatusCode}
	}
	return nil
}

// progressReader maps transferred bytes into the 10-80 band of the overall
// bar.
type progressReader struct {
	reader *bytes.Reader
	total  int64
	sent   int64
	report ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 && r.total > 0 {
		r.sent += int64(n)
		span := int64(progressTransferDone - progressGrantDone)
		r.report(progressGrantDone + int(span*r.sent/r.total))
	}
	return n, err
}
