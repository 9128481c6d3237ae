// Package resource manages the letter scans stored in LetterVault: the
// metadata records in PostgreSQL, the image blobs in object storage, and
// the ownership checks that gate every access to them.
//
// The central type is [Vault], which combines a metadata [Store] with a
// [BlobStore]. All reads and deletes go through [Vault.Authorize], a
// single lookup by (resource id, owner id): a resource that exists but
// belongs to someone else is reported exactly like one that does not
// exist, so error responses cannot be used to probe which ids are taken.
package resource

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Directions a letter can travel. Direction is recorded per scan and can
// be used as a list filter.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Upload limits. Scans are photographs or flatbed scans of physical mail,
// so only the two image formats the clients produce are accepted.
const (
	// MaxUploadSize is the largest accepted scan, in bytes.
	MaxUploadSize = 5 << 20
)

// allowedContentTypes maps accepted upload content types to the file
// extension used in generated object keys.
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Resource is one stored letter scan. ObjectKey locates the image blob in
// object storage; the remaining fields are user-supplied metadata.
type Resource struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	ObjectKey   string     `json:"object_key"`
	ContentType string     `json:"content_type"`
	Direction   string     `json:"direction"`
	Title       *string    `json:"title,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	MailDate    *time.Time `json:"mail_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Upload describes a scan being saved. Content is read exactly once;
// Size must match the number of bytes Content yields.
type Upload struct {
	Content     io.Reader
	Size        int64
	ContentType string
	Direction   string
	Title       *string
	Notes       *string
	MailDate    *time.Time
}

// ListFilter narrows and pages a ListByOwner query. A zero Direction
// matches both directions; a non-positive Limit applies the default page
// size.
type ListFilter struct {
	Direction string
	Limit     int
	Offset    int
}
