package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// listOrders returns all purchase orders, newest issue date first
func (r *Router) listOrders(w http.ResponseWriter, req *http.Request) {
	q := r.db.Preload("Supplier").Order("issue_date DESC, id DESC")
	if status := req.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.PurchaseOrder
	if err := q.Find(&orders).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// createOrder creates a pending purchase order
func (r *Router) createOrder(w http.ResponseWriter, req *http.Request) {
	var order models.PurchaseOrder
	if err := json.NewDecoder(req.Body).Decode(&order); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if order.SupplierID == 0 {
		respondError(w, http.StatusBadRequest, "supplier_id is required")
		return
	}

	var supplier models.Supplier
	if err := r.db.First(&supplier, order.SupplierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Supplier not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch supplier")
		return
	}

	order.Status = models.OrderPending
	if order.IssueDate.IsZero() {
		order.IssueDate = r.engine.Today()
	}

	if err := r.db.Create(&order).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// getOrder returns a single order with its lines
func (r *Router) getOrder(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var order models.PurchaseOrder
	if err := r.db.Preload("Supplier").Preload("Lines").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// updateOrder updates order fields while the order is still pending
func (r *Router) updateOrder(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var order models.PurchaseOrder
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	if order.Status != models.OrderPending {
		respondError(w, http.StatusUnprocessableEntity, "Only pending orders can be edited")
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	delete(updates, "id")
	delete(updates, "status")
	delete(updates, "total")

	if err := r.db.Model(&order).Updates(updates).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// deleteOrder cancels a pending order
func (r *Router) deleteOrder(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var order models.PurchaseOrder
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	if order.Status == models.OrderDelivered {
		respondError(w, http.StatusUnprocessableEntity, "Delivered orders cannot be cancelled")
		return
	}

	if err := r.db.Model(&order).Update("status", models.OrderCancelled).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to cancel order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// listOrderLines returns the lines of an order
func (r *Router) listOrderLines(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var lines []models.PurchaseOrderLine
	if err := r.db.Where("order_id = ?", id).Order("id ASC").Find(&lines).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch order lines")
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

// addOrderLine appends a line to a pending order and updates the total
func (r *Router) addOrderLine(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var line models.PurchaseOrderLine
	if err := json.NewDecoder(req.Body).Decode(&line); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	line.OrderID = id

	if line.MaterialID == 0 {
		respondError(w, http.StatusBadRequest, "material_id is required")
		return
	}
	if line.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if line.UnitPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "unit_price cannot be negative")
		return
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		var order models.PurchaseOrder
		if err := tx.First(&order, id).Error; err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return fmt.Errorf("order %d is not pending", id)
		}
		var material models.Material
		if err := tx.First(&material, line.MaterialID).Error; err != nil {
			return err
		}

		if err := tx.Create(&line).Error; err != nil {
			return err
		}
		lineTotal := line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity))
		return tx.Model(&order).Update("total", order.Total.Add(lineTotal)).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Order or material not found")
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, line)
}

// confirmOrder moves a pending order to confirmed
func (r *Router) confirmOrder(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var order models.PurchaseOrder
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	if order.Status != models.OrderPending {
		respondError(w, http.StatusUnprocessableEntity, "Only pending orders can be confirmed")
		return
	}

	if err := r.db.Model(&order).Update("status", models.OrderConfirmed).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to confirm order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// receiveOrder books a confirmed order into stock. Every line becomes an
// inbound movement; perishable materials additionally get a new batch so
// the FEFO allocator can see the intake.
func (r *Router) receiveOrder(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var order models.PurchaseOrder
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Lines").First(&order, id).Error; err != nil {
			return err
		}
		if order.Status != models.OrderConfirmed {
			return fmt.Errorf("order %d is not confirmed", id)
		}

		now := r.engine.Now()
		for _, line := range order.Lines {
			var material models.Material
			if err := tx.First(&material, line.MaterialID).Error; err != nil {
				return err
			}

			movement := models.InventoryMovement{
				MaterialID: line.MaterialID,
				ProjectID:  order.ProjectID,
				Type:       models.MovementIn,
				Quantity:   line.Quantity,
				Reason:     fmt.Sprintf("Order #%d received", order.ID),
				Actor:      "system",
				OccurredAt: now,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
			if err := tx.Model(&material).
				Update("current_stock", material.CurrentStock+line.Quantity).Error; err != nil {
				return err
			}

			if material.IsPerishable {
				batch := models.MaterialBatch{
					MaterialID: line.MaterialID,
					BatchCode:  fmt.Sprintf("PO%d-%s", order.ID, uuid.NewString()[:8]),
					Quantity:   line.Quantity,
					ExpiryDate: material.DefaultExpiryDate,
					IntakeDate: now,
					Active:     true,
				}
				if err := tx.Create(&batch).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&order).Updates(map[string]interface{}{
			"status":       models.OrderDelivered,
			"delivered_at": now,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, order)
}
