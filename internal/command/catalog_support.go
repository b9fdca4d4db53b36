package command

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/pkg/apperr"
)

const maxAddressesPerUser = 10

// --- categories: reference data, not event-sourced ---

func (h *Handlers) CreateCategory(ctx context.Context, name string) (string, *apperr.Error) {
	id := uuid.NewString()
	if err := h.Query.CreateCategory(ctx, id, name); err != nil {
		return "", apperr.Internal(err)
	}
	return id, nil
}

func (h *Handlers) DeleteCategory(ctx context.Context, categoryID string) *apperr.Error {
	hasProducts, err := h.Query.CategoryHasProducts(ctx, categoryID)
	if err != nil {
		return apperr.Internal(err)
	}
	if hasProducts {
		return apperr.New(apperr.CodeCategoryHasProducts, "category still has products assigned")
	}
	if err := h.Query.DeleteCategory(ctx, categoryID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// --- wishlist ---

func (h *Handlers) AddToWishlist(ctx context.Context, userID, productID string) *apperr.Error {
	cp, err := h.Query.GetPublishedProduct(ctx, productID)
	if err != nil {
		return apperr.Internal(err)
	}
	if cp == nil {
		return apperr.New(apperr.CodeProductNotFound, "product not found")
	}

	added, err := h.Query.AddWishlistItem(ctx, userID, productID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !added {
		return apperr.New(apperr.CodeWishlistDuplicate, "product already in wishlist")
	}
	return nil
}

func (h *Handlers) RemoveFromWishlist(ctx context.Context, userID, productID string) *apperr.Error {
	if err := h.Query.RemoveWishlistItem(ctx, userID, productID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// --- addresses ---

type AddressInput struct {
	Label      string
	Recipient  string
	Phone      string
	Line1      string
	City       string
	PostalCode string
	IsDefault  bool
}

func (h *Handlers) AddAddress(ctx context.Context, userID string, in AddressInput) (string, *apperr.Error) {
	if strings.TrimSpace(in.Recipient) == "" || strings.TrimSpace(in.Line1) == "" ||
		strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.PostalCode) == "" {
		return "", apperr.New(apperr.CodeInvalidAddressFields, "missing required address fields").
			WithFields("recipient", "line1", "city", "postalCode")
	}

	count, err := h.Query.CountAddresses(ctx, userID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if count >= maxAddressesPerUser {
		return "", apperr.New(apperr.CodeAddressBookLimitExceeded, "address book is full")
	}

	id := uuid.NewString()
	if err := h.Query.CreateAddress(ctx, projection.Address{
		ID: id, UserID: userID, Label: in.Label, Recipient: in.Recipient, Phone: in.Phone,
		Line1: in.Line1, City: in.City, PostalCode: in.PostalCode, IsDefault: in.IsDefault,
	}); err != nil {
		return "", apperr.Internal(err)
	}
	return id, nil
}

// UploadImage stores an image without associating it to any product yet —
// backs POST /admin/images, whose result a caller later passes to
// AssociateImage. Reuses the same ImageRepository as the per-product
// upload path.
func (h *Handlers) UploadImage(ctx context.Context, data []byte, contentType string) (string, *apperr.Error) {
	url, err := h.Images.Upload(ctx, data, contentType, uuid.NewString())
	if err != nil {
		return "", apperr.Internal(err)
	}
	return url, nil
}

// UpdateAddress overwrites an existing address's editable fields,
// enforcing the same required-field validation as AddAddress.
func (h *Handlers) UpdateAddress(ctx context.Context, userID, addressID string, in AddressInput) *apperr.Error {
	if strings.TrimSpace(in.Recipient) == "" || strings.TrimSpace(in.Line1) == "" ||
		strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.PostalCode) == "" {
		return apperr.New(apperr.CodeInvalidAddressFields, "missing required address fields").
			WithFields("recipient", "line1", "city", "postalCode")
	}

	found, err := h.Query.UpdateAddress(ctx, projection.Address{
		ID: addressID, UserID: userID, Label: in.Label, Recipient: in.Recipient, Phone: in.Phone,
		Line1: in.Line1, City: in.City, PostalCode: in.PostalCode, IsDefault: in.IsDefault,
	})
	if err != nil {
		return apperr.Internal(err)
	}
	if !found {
		return apperr.New(apperr.CodeAddressNotFound, "address not found")
	}
	return nil
}

func (h *Handlers) RemoveAddress(ctx context.Context, userID, addressID string) *apperr.Error {
	found, err := h.Query.DeleteAddress(ctx, userID, addressID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !found {
		return apperr.New(apperr.CodeAddressNotFound, "address not found")
	}
	return nil
}
