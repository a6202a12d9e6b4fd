package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mahudhurio/core"
)

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	// ListResponse is the envelope for paginated lists.
	ListResponse struct {
		Results interface{}   `json:"results"`
		Meta    core.ListMeta `json:"meta"`
	}

	DestroyMultipleRequest struct {
		IDs []int `query:"id"`
	}
)

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
