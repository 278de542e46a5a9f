package repository

import "gorm.io/gorm"

// ProductListFilter 商品列表查询条件
type ProductListFilter struct {
	Keyword    string
	Brand      string
	Tag        string
	OnlyActive bool
	InStock    *bool
	Page       int
	PageSize   int
}

// OrderListFilter 订单列表查询条件
type OrderListFilter struct {
	UserID        uint
	Status        string
	PaymentStatus string
	OrderNo       string
	Page          int
	PageSize      int
}

// applyPagination 应用过滤条件里的分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}
