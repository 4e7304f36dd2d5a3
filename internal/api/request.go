package api

import (
	"encoding/json"
	"math/big"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"sim-api/internal/lookup"
)

// 请求体上限：查询只是一个短字符串
const maxBodyBytes = 64 << 10

const msgInvalidForm = "Invalid form body"

// 文档注释：从请求中取出原始查询字符串
// 背景：兼容浏览器直接访问（GET ?query=）、curl JSON 提交与 HTML 表单提交三种入口。
// 约束：POST 只读请求体，不回退 URL 参数；JSON 中 query 为数字时按十进制文本处理，其他类型视为校验错误。
func readQuery(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method != http.MethodPost {
		return r.URL.Query().Get("query"), nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if isJSONMediaType(mt) {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var body map[string]any
		if err := dec.Decode(&body); err != nil {
			return "", lookup.NewValidationError(lookup.MsgInvalidJSON)
		}
		switch v := body["query"].(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		case json.Number:
			q, ok := numberQuery(v)
			if !ok {
				return "", lookup.NewValidationError(lookup.MsgQueryType)
			}
			return q, nil
		default:
			return "", lookup.NewValidationError(lookup.MsgQueryType)
		}
	}
	var err error
	if mt == "multipart/form-data" {
		err = r.ParseMultipartForm(maxBodyBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return "", lookup.NewValidationError(msgInvalidForm)
	}
	return r.PostForm.Get("query"), nil
}

// 指数上限：号码最多十几位，更大的指数只可能是误输入，且避免构造超大整数
const maxNumberExp = 32

// numberQuery：JSON 数字按精确十进制整数输出（2.150952917167e12 → 2150952917167）
// 约束：负数、带非零小数部分或指数过大的数字返回 false
func numberQuery(n json.Number) (string, bool) {
	s := n.String()
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.Atoi(s[i+1:])
		if err != nil || exp > maxNumberExp || exp < -maxNumberExp {
			return "", false
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() < 0 || !r.IsInt() {
		return "", false
	}
	return r.Num().String(), true
}

func isJSONMediaType(mt string) bool {
	if mt == "application/json" {
		return true
	}
	return strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json")
}
