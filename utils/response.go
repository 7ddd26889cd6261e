package utils

import "github.com/gin-gonic/gin"

// JSONResponse is the envelope every API handler writes. Code 0 means
// success; error codes group by HTTP class (40xxx, 41xxx, 50xxx).
// Listing handlers also marshal this shape into the response cache so a
// cache hit goes to the wire verbatim.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes the envelope with code 0 and HTTP 200.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, JSONResponse{Code: 0, Message: "success", Data: data})
}

// Error writes the envelope with an application error code and no data.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, JSONResponse{Code: code, Message: message})
}
