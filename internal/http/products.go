package http

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pos-billing/internal/domain"
	"pos-billing/internal/service"
)

const timeLayout = time.RFC3339

// number accepts a JSON number or a string holding one. Edit forms post
// their input values as strings.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '"' {
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			return fmt.Errorf("invalid number %s", raw)
		}
		raw = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = number(f)
	return nil
}

func (n number) int() (int, error) {
	f := float64(n)
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: quantity must be a whole number", service.ErrInvalidInput)
	}
	return int(f), nil
}

type addProductForm struct {
	Name     string `form:"name" binding:"required"`
	Price    string `form:"price" binding:"required"`
	Quantity string `form:"quantity"`
}

type updateProductRequest struct {
	Name     *string `json:"name"`
	Price    *number `json:"price"`
	Quantity *number `json:"quantity"`
	Image    *string `json:"image"`
}

type quantityItem struct {
	ID       string `json:"_id"`
	Quantity int    `json:"quantity"`
}

type updateQuantitiesRequest struct {
	Items []quantityItem `json:"items" binding:"required"`
}

type ProductResponse struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     *string `json:"image"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type AdjustmentResponse struct {
	ID       string `json:"_id"`
	Quantity int    `json:"quantity"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) addProduct(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var form addProductForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(form.Price), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}
	quantity := 0
	if q := strings.TrimSpace(form.Quantity); q != "" {
		var n number
		if err := n.UnmarshalJSON([]byte(q)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
			return
		}
		if quantity, err = n.int(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	input := service.NewProduct{Name: form.Name, Price: price, Quantity: quantity}

	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
			return
		}
		defer file.Close()
		input.Image = &service.Upload{Filename: fileHeader.Filename, Body: file}
	case errors.Is(err, http.ErrMissingFile):
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "add product", err)
		return
	}

	c.JSON(http.StatusCreated, productToResponse(*product))
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, "list products", err)
		return
	}

	resp := make([]ProductResponse, len(products))
	for i := range products {
		resp[i] = productToResponse(products[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, productToResponse(*product))
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.ProductPatch{
		Name:  req.Name,
		Image: req.Image,
	}
	if req.Price != nil {
		price := float64(*req.Price)
		patch.Price = &price
	}
	if req.Quantity != nil {
		quantity, err := req.Quantity.int()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.Quantity = &quantity
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, "update product", err)
		return
	}
	c.JSON(http.StatusOK, productToResponse(*product))
}

func (h *Handler) deleteProduct(c *gin.Context) {
	warnings, err := h.products.DeleteProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "delete product", err)
		return
	}

	resp := gin.H{"message": "Product deleted"}
	if len(warnings) > 0 {
		h.log.WithField("product", c.Param("id")).Warnf("delete product: %s", strings.Join(warnings, "; "))
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) updateQuantities(c *gin.Context) {
	var req updateQuantitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adjustments := make([]domain.Adjustment, len(req.Items))
	for i, item := range req.Items {
		adjustments[i] = domain.Adjustment{ProductID: item.ID, Quantity: item.Quantity}
	}

	results, err := h.products.AdjustInventory(c.Request.Context(), adjustments)
	h.writeAdjustments(c, "update quantities", results, err)
}

// writeAdjustments reports a batch outcome: 200 when every item applied,
// the mapped error status otherwise, always with per-item results when known.
func (h *Handler) writeAdjustments(c *gin.Context, op string, results []service.AdjustmentResult, err error) {
	resp := gin.H{"success": err == nil}
	if results != nil {
		resp["results"] = adjustmentsToResponse(results)
	}
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.WithError(err).WithField("op", op).Error("stock adjustment failed")
		}
		resp["error"] = err.Error()
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func adjustmentsToResponse(results []service.AdjustmentResult) []AdjustmentResponse {
	out := make([]AdjustmentResponse, len(results))
	for i, r := range results {
		out[i] = AdjustmentResponse{ID: r.ProductID, Quantity: r.Quantity, OK: r.Err == nil}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func productToResponse(p domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  p.Quantity,
		CreatedAt: p.CreatedAt.Format(timeLayout),
		UpdatedAt: p.UpdatedAt.Format(timeLayout),
	}
	if p.Image != "" {
		image := p.Image
		resp.Image = &image
	}
	return resp
}
