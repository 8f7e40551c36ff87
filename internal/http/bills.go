package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pos-billing/internal/billing"
	"pos-billing/internal/domain"
	"pos-billing/internal/service"
)

type applyItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Delta     int    `json:"delta" binding:"required"`
}

type BillLineResponse struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    *string `json:"image"`
	Quantity int     `json:"quantity"`
	Amount   float64 `json:"amount"`
}

type BillResponse struct {
	ID    string             `json:"id"`
	Lines []BillLineResponse `json:"lines"`
	Total float64            `json:"total"`
}

func (h *Handler) openBill(c *gin.Context) {
	id, err := h.bills.Open()
	if err != nil {
		h.fail(c, "open bill", err)
		return
	}
	c.JSON(http.StatusCreated, BillResponse{ID: id, Lines: []BillLineResponse{}})
}

func (h *Handler) getBill(c *gin.Context) {
	id := c.Param("id")
	var resp BillResponse
	err := h.bills.With(c.Request.Context(), id, func(_ context.Context, bill *billing.Bill) error {
		resp = billToResponse(id, bill.Lines())
		return nil
	})
	if err != nil {
		h.fail(c, "get bill", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) applyBillItem(c *gin.Context) {
	var req applyItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// a fresh snapshot per tap keeps bill prices in step with the catalog
	product, err := h.products.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil && !(errors.Is(err, service.ErrProductNotFound) && req.Delta < 0) {
		h.fail(c, "apply bill item", err)
		return
	}

	id := c.Param("id")
	var resp BillResponse
	err = h.bills.With(c.Request.Context(), id, func(_ context.Context, bill *billing.Bill) error {
		snapshot := product
		if snapshot == nil {
			// gone from the catalog: decrement against what the bill last saw
			line, ok := bill.Line(req.ProductID)
			if !ok {
				return service.ErrProductNotFound
			}
			stored := line.Snapshot()
			snapshot = &stored
		}
		if err := bill.Apply(*snapshot, req.Delta); err != nil {
			return err
		}
		resp = billToResponse(id, bill.Lines())
		return nil
	})
	if err != nil {
		h.fail(c, "apply bill item", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) finishBill(c *gin.Context) {
	id := c.Param("id")

	var (
		receipt billing.Receipt
		results []service.AdjustmentResult
	)
	err := h.bills.With(c.Request.Context(), id, func(ctx context.Context, bill *billing.Bill) error {
		receipt = billing.NewReceipt("", h.currency, bill.Lines())
		_, err := bill.Finalize(ctx, billing.SubmitterFunc(func(ctx context.Context, adjustments []domain.Adjustment) error {
			var err error
			results, err = h.products.AdjustInventory(ctx, adjustments)
			return err
		}))
		return err
	})
	if err != nil {
		if errors.Is(err, service.ErrAdjustmentFailed) || results != nil {
			h.writeAdjustments(c, "finish bill", results, err)
			return
		}
		h.fail(c, "finish bill", err)
		return
	}

	h.metrics.BillFinalized(receipt.Total)
	h.log.WithFields(logrus.Fields{"bill": id, "lines": len(receipt.Lines), "total": receipt.Total}).Info("bill finalized")

	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		h.writeHTMLReceipt(c, receipt)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"receipt": billToResponse(id, receipt.Lines),
		"results": adjustmentsToResponse(results),
	})
}

func (h *Handler) billReceipt(c *gin.Context) {
	id := c.Param("id")
	var receipt billing.Receipt
	err := h.bills.With(c.Request.Context(), id, func(_ context.Context, bill *billing.Bill) error {
		lines := bill.Lines()
		if len(lines) == 0 {
			// just finished: reprint what was paid for
			lines = bill.LastFinalized()
		}
		receipt = billing.NewReceipt("", h.currency, lines)
		return nil
	})
	if err != nil {
		h.fail(c, "bill receipt", err)
		return
	}

	if c.Query("format") == "text" {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		if err := receipt.WriteText(c.Writer); err != nil {
			h.log.WithError(err).Warn("write text receipt")
		}
		return
	}

	h.writeHTMLReceipt(c, receipt)
}

func (h *Handler) writeHTMLReceipt(c *gin.Context, receipt billing.Receipt) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := receipt.WriteHTML(c.Writer); err != nil {
		h.log.WithError(err).Warn("write html receipt")
	}
}

func (h *Handler) discardBill(c *gin.Context) {
	if err := h.bills.Discard(c.Param("id")); err != nil {
		h.fail(c, "discard bill", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bill discarded"})
}

func billToResponse(id string, lines []billing.Line) BillResponse {
	resp := BillResponse{
		ID:    id,
		Lines: make([]BillLineResponse, len(lines)),
		Total: billing.Total(lines),
	}
	for i, l := range lines {
		resp.Lines[i] = BillLineResponse{
			ID:       l.ProductID,
			Name:     l.Name,
			Price:    l.Price,
			Quantity: l.Quantity,
			Amount:   l.Amount(),
		}
		if l.Image != "" {
			image := l.Image
			resp.Lines[i].Image = &image
		}
	}
	return resp
}
