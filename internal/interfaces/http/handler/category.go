package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/floworx/backend/internal/application/onboarding"
)

// CategoryHandler manages individual business categories
type CategoryHandler struct {
	BaseHandler
	categoryService *onboarding.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService *onboarding.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// AddCategoryRequest is the request body for adding a category
type AddCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// List returns the user's categories in insertion order
func (h *CategoryHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"categories": categories})
}

// Add appends a category; duplicate names conflict
func (h *CategoryHandler) Add(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req AddCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	category, err := h.categoryService.AddCategory(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, category)
}

// Remove deletes a category by name unless dependents still reference it
func (h *CategoryHandler) Remove(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	name := c.Param("name")
	if err := h.categoryService.RemoveCategory(c.Request.Context(), userID, name); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
