package dto

type UploadGrantRequest struct {
	EntityType    string `json:"entity_type"`
	EntityID      string `json:"entity_id"`
	ContentType   string `json:"content_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	FileName      string `json:"file_name"`
}

// UploadGrantResponse is ephemeral: the URL is single-use and time-boxed,
// and nothing about the grant is persisted server-side.
type UploadGrantResponse struct {
	UploadURL           string `json:"upload_url"`
	StorageKey          string `json:"storage_key"`
	ThumbnailStorageKey string `json:"thumbnail_storage_key"`
	ExpiresAt           string `json:"expires_at"`
}

type ConfirmUploadRequest struct {
	StorageKey          string `json:"storage_key"`
	ThumbnailStorageKey string `json:"thumbnail_storage_key"`
	ContentType         string `json:"content_type"`
	FileSizeBytes       int64  `json:"file_size_bytes"`
	OriginalFileName    string `json:"original_file_name"`
	PropertyID          string `json:"property_id,omitempty"`
}
