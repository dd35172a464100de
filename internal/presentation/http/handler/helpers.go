package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/request"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/response"
	"github.com/sangkips/pharmacy-invoice/pkg/apperror"
	"github.com/sangkips/pharmacy-invoice/pkg/pagination"
)

// bindJSON binds the request body and writes the error response on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.FromValidator(err))
		return false
	}
	return true
}

// bindList reads search and pagination query parameters
func bindList(c *gin.Context) (string, *pagination.PaginationParams, bool) {
	var req request.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return "", nil, false
	}
	params := &pagination.PaginationParams{Page: req.Page, PerPage: req.PerPage}
	params.Validate()
	return req.Search, params, true
}

// IsDeleteConfirmed reports whether the request carries ?confirm=true
func IsDeleteConfirmed(c *gin.Context) bool {
	var req request.DeleteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return false
	}
	return req.Confirm
}
