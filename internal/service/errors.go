package service

import "errors"

// 业务错误定义，handler 层通过 errors.Is 映射为响应码。
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrVariantNotFound     = errors.New("product variant not found")
	ErrProductInactive     = errors.New("product inactive")
	ErrItemNotFound        = errors.New("item not found")
	ErrOutOfStock          = errors.New("out of stock")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidOrderItem    = errors.New("invalid order item")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrReturnWindowExpired = errors.New("return window expired")
	ErrOwnershipMismatch   = errors.New("order belongs to another user")
	ErrGuestCredentials    = errors.New("guest credentials mismatch")
	ErrStoreBusy           = errors.New("store busy, retry later")
)
