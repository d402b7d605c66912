package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/crime-eda-backend-go/internal/analysis"
	"github.com/jengzang/crime-eda-backend-go/internal/repository"
	"github.com/jengzang/crime-eda-backend-go/internal/service"
	"github.com/jengzang/crime-eda-backend-go/pkg/response"
)

var errorStatus = []response.Mapping{
	{Err: service.ErrNotLoaded, Status: http.StatusServiceUnavailable},
	{Err: service.ErrInvalidFilter, Status: http.StatusBadRequest},
	{Err: analysis.ErrUnknownGranularity, Status: http.StatusBadRequest},
	{Err: analysis.ErrUnknownDerivation, Status: http.StatusNotFound},
	{Err: analysis.ErrIncompleteYear, Status: http.StatusUnprocessableEntity},
	{Err: repository.ErrNotFound, Status: http.StatusNotFound},
}

func fail(c *gin.Context, err error) {
	response.FromError(c, err, errorStatus...)
}
