package models

// PagedResult 列表响应的通用外壳，与前端分页组件约定一致
type PagedResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}
