package queue

// IndexJobMsg tells the worker to index one document. FileKey addresses
// the raw text in S3.
type IndexJobMsg struct {
	DocID   string `json:"doc_id"`
	FileKey string `json:"file_key"`
}
