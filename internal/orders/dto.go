package orders

type CreateOrderRequest struct {
	OrderNumber string                   `json:"order_number" validate:"omitempty,max=50"`
	Items       []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type UpdateItemRequest struct {
	Quantity *int64 `json:"quantity" validate:"required,gte=0"`
}

// MutationResponse is returned by every mutating operation: a human message
// plus the refreshed order aggregate, so callers never need a follow-up read.
type MutationResponse struct {
	Message string `json:"message"`
	Order   *Order `json:"order"`
}
