package api

import (
	"strconv"
	"strings"
	"time"

	"smartbudget/store"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// parseID 解析路径中的 id，非数字时返回 400
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		BadRequest(c, "无效的ID")
		return 0, false
	}
	return id, true
}

// parseDate 支持 2006-01-02 与 RFC3339 两种格式
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseDateRange 读取 start_date / end_date，结束日期包含当天；缺省项返回零值
func parseDateRange(c *gin.Context) (start, end time.Time, ok bool) {
	var err error
	if s := c.Query("start_date"); s != "" {
		if start, err = parseDate(s); err != nil {
			BadRequest(c, "开始时间格式错误，应为: 2006-01-02")
			return start, end, false
		}
	}
	if s := c.Query("end_date"); s != "" {
		if end, err = parseDate(s); err != nil {
			BadRequest(c, "结束时间格式错误，应为: 2006-01-02")
			return start, end, false
		}
		if len(s) == len(dateLayout) {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		BadRequest(c, "结束时间不能早于开始时间")
		return start, end, false
	}
	return start, end, true
}

// bindPatch 读取部分更新的请求体，dateFields 中的 2006-01-02 日期转换为 RFC3339
func bindPatch(c *gin.Context, dateFields ...string) (store.Patch, bool) {
	var patch store.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return nil, false
	}
	for _, f := range dateFields {
		s, isString := patch[f].(string)
		if !isString {
			continue
		}
		t, err := parseDate(s)
		if err != nil {
			BadRequest(c, f+" 格式错误，应为: 2006-01-02")
			return nil, false
		}
		patch[f] = t.Format(time.RFC3339)
	}
	return patch, true
}

// queryInt 读取整数查询参数，缺省或非法时返回 def
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
