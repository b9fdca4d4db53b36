package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/koopa0/shopfront/internal/command"
	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/pkg/apperr"
)

type productResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Price      int      `json:"price"`
	CategoryID string   `json:"categoryId"`
	Stock      int      `json:"stock"`
	Status     string   `json:"status"`
	ImageURLs  []string `json:"imageUrls"`
}

func toProductResponse(cp projection.CatalogProduct) productResponse {
	return productResponse{
		ID: cp.ID, Name: cp.Name, Price: cp.Price, CategoryID: cp.CategoryID,
		Stock: cp.Stock, Status: string(cp.Status), ImageURLs: cp.ImageURLs,
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("categoryId")
	limit, offset := pagination(r)

	var (
		products []projection.CatalogProduct
		err      error
	)
	if strings.HasPrefix(r.URL.Path, "/admin/") {
		products, err = s.Handlers.Query.ListAllProducts(r.Context(), limit, offset)
	} else {
		products, err = s.Handlers.Query.ListPublishedProducts(r.Context(), categoryID, limit, offset)
	}
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, cp := range products {
		out = append(out, toProductResponse(cp))
	}
	respondJSON(w, s.Logger, http.StatusOK, out)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cp, err := s.Handlers.Query.GetPublishedProduct(r.Context(), id)
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	if cp == nil {
		respondError(w, s.Logger, apperr.New(apperr.CodeProductNotFound, "product not found"))
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, toProductResponse(*cp))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.Handlers.Query.ListCategories(r.Context())
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, categories)
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	id, appErr := s.Handlers.CreateCategory(r.Context(), req.Name)
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if appErr := s.Handlers.DeleteCategory(r.Context(), id); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusNoContent, nil)
}

type createProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int      `json:"price"`
	CategoryID  string   `json:"categoryId"`
	Stock       int      `json:"stock"`
	ImageURLs   []string `json:"imageUrls"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	id, appErr := s.Handlers.CreateProduct(r.Context(), command.CreateProductInput{
		Name: req.Name, Description: req.Description, Price: req.Price,
		CategoryID: req.CategoryID, Stock: req.Stock, ImageURLs: req.ImageURLs,
	})
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var changes map[string]any
	if appErr := decodeJSON(r, &changes); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if appErr := s.Handlers.UpdateProduct(r.Context(), id, changes); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if appErr := s.Handlers.DeleteProduct(r.Context(), id); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusNoContent, nil)
}

type updateStockRequest struct {
	Qty int `json:"qty"`
}

func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateStockRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if appErr := s.Handlers.UpdateStock(r.Context(), id, req.Qty); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

func (s *Server) handleAssociateProductImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	contentType := r.Header.Get("Content-Type")
	data, err := readLimitedBody(w, r)
	if err != nil {
		respondError(w, s.Logger, apperr.New(apperr.CodeValidationError, "invalid image payload"))
		return
	}
	url, appErr := s.Handlers.AssociateImage(r.Context(), id, data, contentType)
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, struct {
		URL string `json:"url"`
	}{URL: url})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	data, err := readLimitedBody(w, r)
	if err != nil {
		respondError(w, s.Logger, apperr.New(apperr.CodeValidationError, "invalid image payload"))
		return
	}
	url, appErr := s.Handlers.UploadImage(r.Context(), data, contentType)
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, struct {
		URL string `json:"url"`
	}{URL: url})
}

const maxImageBytes = 8 << 20

func readLimitedBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
