package backup

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ATLAS-backend/internal/platform/auth"
)

type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorFromErr(err error) errorDTO {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return errorDTO{Code: apiErr.Code, Message: apiErr.Message}
	}
	return errorDTO{Code: "INTERNAL", Message: err.Error()}
}

type createRequest struct {
	Kind  string `json:"kind"`
	Actor string `json:"actor"`
}

// RegisterRoutes はバックアップ関連のルートを登録する
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	r.POST("/backups", func(c *gin.Context) {
		var req createRequest
		// ボディなしの手動バックアップも許可する
		_ = c.ShouldBindJSON(&req)

		actor := auth.Actor(c)
		if actor == "" {
			actor = req.Actor
		}

		rec, err := svc.Create(c.Request.Context(), req.Kind, actor)
		if err != nil {
			c.JSON(toHTTPStatus(err), gin.H{"error": errorFromErr(err)})
			return
		}
		c.JSON(http.StatusCreated, rec)
	})

	r.GET("/backups", func(c *gin.Context) {
		recs, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(toHTTPStatus(err), gin.H{"error": errorFromErr(err)})
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	r.GET("/backups/:backup_id", func(c *gin.Context) {
		rec, err := svc.Get(c.Request.Context(), c.Param("backup_id"))
		if err != nil {
			c.JSON(toHTTPStatus(err), gin.H{"error": errorFromErr(err)})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	r.POST("/backups/:backup_id/restore", func(c *gin.Context) {
		rec, err := svc.Restore(c.Request.Context(), c.Param("backup_id"))
		if err != nil {
			c.JSON(toHTTPStatus(err), gin.H{"error": errorFromErr(err)})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	r.DELETE("/backups/:backup_id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("backup_id")); err != nil {
			c.JSON(toHTTPStatus(err), gin.H{"error": errorFromErr(err)})
			return
		}
		c.Status(http.StatusNoContent)
	})
}
