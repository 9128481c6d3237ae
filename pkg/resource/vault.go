package resource

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for resource
// spans.
const tracerName = "github.com/LetterVault/lettervault-core/pkg/resource"

// ---------------------------------------------------------------------------
// Vault
// ---------------------------------------------------------------------------

// Vault combines the metadata [Store] and the [BlobStore] behind a single
// ownership-checked API. Every read and delete first resolves the
// (resource, owner) pair through [Vault.Authorize]; callers never touch a
// blob whose record they do not own.
//
// Vault is safe for concurrent use by multiple goroutines.
type Vault struct {
	store  Store
	blobs  BlobStore
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// VaultOption customizes a [Vault].
type VaultOption func(*Vault)

// WithLogger overrides the logger used for best-effort cleanup warnings.
func WithLogger(logger *slog.Logger) VaultOption {
	return func(v *Vault) { v.logger = logger }
}

// WithClock overrides the time source used for record timestamps.
// Intended for tests.
func WithClock(now func() time.Time) VaultOption {
	return func(v *Vault) { v.now = now }
}

// NewVault creates a Vault over the given store and blob store.
func NewVault(store Store, blobs BlobStore, opts ...VaultOption) *Vault {
	v := &Vault{
		store:  store,
		blobs:  blobs,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Authorize returns the resource with the given id if it belongs to the
// given account. A resource owned by another account fails exactly like
// an absent one, with [lverr.CodeNotFoundResource], so responses cannot
// reveal whether an id exists.
func (v *Vault) Authorize(ctx context.Context, accountID, resourceID uuid.UUID) (*Resource, error) {
	ctx, span := v.tracer.Start(ctx, "resource.Authorize")
	defer span.End()

	res, err := v.store.FindOwned(ctx, resourceID, accountID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("resource.id", res.ID.String()))
	return res, nil
}

// Save stores a new scan for the given owner: the image blob is written
// first under a fresh object key, then the metadata record is inserted.
// If the insert fails the blob is removed again on a best-effort basis so
// storage does not accumulate orphans.
//
// Error codes:
//   - [lverr.CodeValidation]: unsupported content type, bad direction, or
//     a size outside (0, MaxUploadSize]
func (v *Vault) Save(ctx context.Context, ownerID uuid.UUID, upload Upload) (*Resource, error) {
	ctx, span := v.tracer.Start(ctx, "resource.Save")
	defer span.End()

	if err := validateUpload(upload); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	ext := allowedContentTypes[upload.ContentType]
	key := uuid.NewString() + ext

	if err := v.blobs.Put(ctx, key, upload.Content, upload.Size, upload.ContentType); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	res := &Resource{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		ObjectKey:   key,
		ContentType: upload.ContentType,
		Direction:   upload.Direction,
		Title:       upload.Title,
		Notes:       upload.Notes,
		MailDate:    upload.MailDate,
		CreatedAt:   v.now(),
	}

	if err := v.store.Insert(ctx, res); err != nil {
		if cleanupErr := v.blobs.Remove(ctx, key); cleanupErr != nil {
			v.logger.WarnContext(ctx, "orphaned blob left after failed insert",
				"object_key", key, "error", cleanupErr)
		}
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("resource.id", res.ID.String()))
	return res, nil
}

// Open authorizes the resource and opens its blob for reading. The caller
// must close the returned reader.
func (v *Vault) Open(ctx context.Context, accountID, resourceID uuid.UUID) (*Resource, io.ReadCloser, error) {
	ctx, span := v.tracer.Start(ctx, "resource.Open")
	defer span.End()

	res, err := v.Authorize(ctx, accountID, resourceID)
	if err != nil {
		recordSpanError(span, err)
		return nil, nil, err
	}

	rc, err := v.blobs.Get(ctx, res.ObjectKey)
	if err != nil {
		recordSpanError(span, err)
		return nil, nil, err
	}
	return res, rc, nil
}

// Delete authorizes the resource, removes its blob, and deletes its
// record. Blob removal is best-effort: a blob that is already gone only
// produces a warning, since the record is the source of truth. Record
// deletion is required and its failure fails the operation.
func (v *Vault) Delete(ctx context.Context, accountID, resourceID uuid.UUID) error {
	ctx, span := v.tracer.Start(ctx, "resource.Delete")
	defer span.End()

	res, err := v.Authorize(ctx, accountID, resourceID)
	if err != nil {
		recordSpanError(span, err)
		return err
	}

	if err := v.blobs.Remove(ctx, res.ObjectKey); err != nil {
		v.logger.WarnContext(ctx, "blob removal failed during delete",
			"resource_id", res.ID.String(), "object_key", res.ObjectKey, "error", err)
	}

	if err := v.store.Delete(ctx, res.ID, accountID); err != nil {
		recordSpanError(span, err)
		return err
	}

	span.SetAttributes(attribute.String("resource.id", res.ID.String()))
	return nil
}

// List returns the account's resources, newest first, narrowed and paged
// by the filter.
func (v *Vault) List(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]*Resource, error) {
	ctx, span := v.tracer.Start(ctx, "resource.List")
	defer span.End()

	results, err := v.store.ListByOwner(ctx, accountID, filter)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("resource.count", len(results)))
	return results, nil
}

// validateUpload checks the upload against the content type whitelist,
// the direction values, and the size cap.
func validateUpload(upload Upload) error {
	if _, ok := allowedContentTypes[upload.ContentType]; !ok {
		return lverr.Newf(lverr.CodeValidation,
			"resource: unsupported content type %q", upload.ContentType)
	}
	if upload.Direction != DirectionSent && upload.Direction != DirectionReceived {
		return lverr.Newf(lverr.CodeValidation,
			"resource: direction must be %q or %q", DirectionSent, DirectionReceived)
	}
	if upload.Size <= 0 {
		return lverr.New(lverr.CodeValidation, "resource: upload is empty")
	}
	if upload.Size > MaxUploadSize {
		return lverr.Newf(lverr.CodeValidation,
			"resource: upload of %d bytes exceeds the %d byte limit",
			upload.Size, MaxUploadSize)
	}
	return nil
}

// recordSpanError records an error on the span if err is non-nil and sets
// the span status to Error.
func recordSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
