package returns

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ATLAS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 1. 返品リソース
	r.GET("/returns", h.List)
	r.POST("/returns", h.Create) // Idempotency-Key 対応
	r.GET("/returns/:return_ulid", h.Get)
	r.DELETE("/returns/:return_ulid", h.Delete)

	// 2. ステータス遷移
	r.POST("/returns/:return_ulid/approve", h.Approve)
	r.POST("/returns/:return_ulid/reject", h.Reject)
	r.POST("/returns/:return_ulid/complete", h.Complete)

	// 3. ダッシュボード向け（:return_ulid と同階層に置かない）
	r.GET("/return-stats", h.Stats)
	r.GET("/return-export", h.Export)
	r.GET("/eligible-orders", h.EligibleOrders)
}

// ---------- handlers ----------

func (h *Handler) List(c *gin.Context) {
	f := Filter{}
	if v := c.Query("status"); v != "" {
		f.Status = &v
	}
	if v := c.Query("order_number"); v != "" {
		f.OrderNumber = &v
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "from must be RFC3339"))
			return
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "to must be RFC3339"))
			return
		}
		f.To = &t
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
	rows, total, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"returns": rows, "total": total})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.Create(c.Request.Context(), req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Location", "/returns/"+res.ReturnULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("return_ulid"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// 操作者: JWTのsubを優先、なければ本文のactorを使う
func actorFrom(c *gin.Context, bodyActor string) string {
	if a := auth.Actor(c); a != "" {
		return a
	}
	return bodyActor
}

func (h *Handler) Approve(c *gin.Context) {
	var req TransitionRequest
	_ = c.ShouldBindJSON(&req) // 本文は省略可

	res, err := h.svc.Approve(c.Request.Context(), c.Param("return_ulid"), actorFrom(c, req.Actor))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "reason is required"))
		return
	}

	res, err := h.svc.Reject(c.Request.Context(), c.Param("return_ulid"), actorFrom(c, req.Actor), req.Reason)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Complete(c *gin.Context) {
	var req TransitionRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.svc.Complete(c.Request.Context(), c.Param("return_ulid"), actorFrom(c, req.Actor))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("return_ulid")); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Stats(c *gin.Context) {
	res, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) EligibleOrders(c *gin.Context) {
	res, err := h.svc.EligibleOrders(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": res, "count": len(res)})
}

func (h *Handler) Export(c *gin.Context) {
	f := Filter{}
	if v := c.Query("status"); v != "" {
		f.Status = &v
	}
	enc := c.DefaultQuery("encoding", EncodingUTF8)

	data, err := h.svc.ExportCSV(c.Request.Context(), f, enc)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="returns.csv"`)
	c.Data(http.StatusOK, "text/csv; charset="+charsetFor(enc), data)
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
