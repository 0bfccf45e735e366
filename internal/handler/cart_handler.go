package handler

import (
	"net/http"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/config"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/middleware"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type SaveCartRequest struct {
	Items []SaveCartLineRequest `json:"items"`
}

type SaveCartLineRequest struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int64 `json:"quantity"`
}

// /cart を登録（保存は全入れ替えなのでPUT1本）
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.ActiveUserGuard(userRepo))

	g.GET("", h.getCart)
	g.PUT("", h.saveCart)
	g.DELETE("", h.clearCart)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) saveCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req SaveCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	lines := make([]usecase.SaveCartLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, usecase.SaveCartLine{
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}

	out, err := h.uc.SaveCart(c.Request().Context(), userID, lines)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.ClearCart(c.Request().Context(), userID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "cart cleared"})
}
