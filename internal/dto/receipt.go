package dto

type ReceiptResponse struct {
	ID                  string `json:"id"`
	ContentType         string `json:"content_type"`
	FileSizeBytes       int64  `json:"file_size_bytes"`
	StorageKey          string `json:"storage_key"`
	ThumbnailStorageKey string `json:"thumbnail_storage_key,omitempty"`
	OriginalFileName    string `json:"original_file_name"`
	PropertyID          string `json:"property_id,omitempty"`
	PropertyName        string `json:"property_name,omitempty"`
	CreatedAt           string `json:"created_at"`
	ProcessedAt         string `json:"processed_at,omitempty"`
	ViewURL             string `json:"view_url,omitempty"`
	ThumbnailURL        string `json:"thumbnail_url,omitempty"`
}

type UnprocessedReceiptsResponse struct {
	Items      []ReceiptResponse `json:"items"`
	TotalCount int               `json:"total_count"`
}
