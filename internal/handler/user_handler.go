package handler

import (
	"net/http"
	"strconv"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// UserHandler handles admin account management.
type UserHandler struct {
	userRepo    *repository.UserRepository
	authService *service.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo *repository.UserRepository, authService *service.AuthService) *UserHandler {
	return &UserHandler{userRepo: userRepo, authService: authService}
}

// ListUsers godoc
// GET /api/v1/admin/users?role=STUDENT
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	role := model.Role(c.Query("role"))

	users, total, err := h.userRepo.List(c.Request.Context(), role, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"users": users},
		response.NewPagination(page, perPage, total))
}

// CreateUser godoc
// POST /api/v1/admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.Role(req.Role),
	}

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// DeleteUser godoc
// DELETE /api/v1/admin/users/:user_id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.userRepo.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
