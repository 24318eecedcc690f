package utils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"property_recommend/models"
)

// 请求体大小上限
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteFormattedJSON 格式化JSON输出，使其更易读
func WriteFormattedJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ") // 使用4个空格缩进
	_ = encoder.Encode(data)
}

// WriteSuccessResponse 写入成功响应
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteFormattedJSON(w, models.NewSuccessResponse(data))
}

// WriteErrorResponse 写入错误响应
func WriteErrorResponse(w http.ResponseWriter, code int, data interface{}) {
	WriteFormattedJSON(w, models.NewErrorResponse(code, data))
}

// WriteCustomErrorResponse 写入自定义错误消息的响应
func WriteCustomErrorResponse(w http.ResponseWriter, code int, message string, data interface{}) {
	WriteFormattedJSON(w, models.NewCustomErrorResponse(code, message, data))
}

// HandleServiceError 处理服务层错误的通用函数
func HandleServiceError(w http.ResponseWriter, err error, noDataCode int) {
	switch {
	case IsInvalidInput(err):
		WriteCustomErrorResponse(w, models.CodeInvalidParams, err.Error(), map[string]interface{}{})
	case IsNotFound(err):
		WriteErrorResponse(w, noDataCode, map[string]interface{}{})
	default:
		WriteCustomErrorResponse(w, models.CodeServerError, err.Error(), map[string]interface{}{})
	}
}

// ValidateCID 验证CID参数
func ValidateCID(w http.ResponseWriter, cid string) bool {
	if strings.TrimSpace(cid) == "" {
		WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{
			"param": "cid",
		})
		return false
	}
	return true
}

// DecodeJSON 解析并校验请求体，失败时直接写入错误响应
// allowEmpty 为 true 时空请求体视为零值
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			WriteCustomErrorResponse(w, models.CodeInvalidParams, "请求体解析失败: "+err.Error(), map[string]interface{}{})
			return false
		}
	}
	if err := validate.Struct(dst); err != nil {
		WriteCustomErrorResponse(w, models.CodeInvalidParams, validationMessage(err), map[string]interface{}{})
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}
