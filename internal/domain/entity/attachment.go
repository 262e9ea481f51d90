package entity

import "time"

// OwnerKind identifies what an attachment belongs to
type OwnerKind string

const (
	OwnerClaim        OwnerKind = "claim"
	OwnerPaymentProof OwnerKind = "payment_proof"
)

// Attachment represents stored file metadata for a claim or a payment proof
type Attachment struct {
	ID         string    `json:"id"`
	OwnerKind  OwnerKind `json:"owner_kind"`
	OwnerID    string    `json:"owner_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"file_type"`
	PageCount  int       `json:"page_count,omitempty"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"uploaded_at"`
}

// IsPDF returns true if the stored file is a PDF document
func (a *Attachment) IsPDF() bool {
	return a.MimeType == MimePDF
}

// Upload is file content received from a caller, not yet stored
type Upload struct {
	FileName string
	Content  []byte
}

// Accepted attachment MIME types
const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)
