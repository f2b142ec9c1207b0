package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"smartbudget/models"
	"smartbudget/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	svc *service.FinanceService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *service.FinanceService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

var exportHeaders = []string{"ID", "类型", "金额", "类别", "描述", "日期"}

// loadExport 读取时间范围内的交易，start_date 与 end_date 必填
func (h *ExportHandler) loadExport(c *gin.Context) ([]models.Transaction, bool) {
	if c.Query("start_date") == "" || c.Query("end_date") == "" {
		BadRequest(c, "请提供开始时间和结束时间")
		return nil, false
	}
	start, end, ok := parseDateRange(c)
	if !ok {
		return nil, false
	}
	txs, err := h.svc.ListTransactions(c.Request.Context(), service.TransactionFilter{Start: start, End: end})
	if err != nil {
		respondError(c, err, "查询数据失败")
		return nil, false
	}
	return txs, true
}

func typeName(t models.TransactionType) string {
	if t == models.TransactionIncome {
		return "收入"
	}
	return "支出"
}

// ExportCSV 导出交易为 CSV
// @Summary 导出交易 CSV
// @Description 根据时间范围导出交易为 CSV 文件
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param start_date query string true "开始日期 (2024-01-01)"
// @Param end_date query string true "结束日期 (2024-12-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	txs, ok := h.loadExport(c)
	if !ok {
		return
	}

	buf := new(bytes.Buffer)
	// BOM 让 Excel 正确识别中文
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}
	for _, t := range txs {
		row := []string{
			strconv.Itoa(t.ID),
			typeName(t.Type),
			t.Amount.StringFixed(2),
			t.Category,
			t.Description,
			t.Date.Format(dateLayout),
		}
		if err := writer.Write(row); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s.csv", c.Query("start_date"), c.Query("end_date"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出交易为 Excel，末行为收支合计
// @Summary 导出交易 Excel
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_date query string true "开始日期 (2024-01-01)"
// @Param end_date query string true "结束日期 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	txs, ok := h.loadExport(c)
	if !ok {
		return
	}
	f := buildWorkbook(txs)
	defer f.Close()

	filename := fmt.Sprintf("transactions_%s_%s.xlsx", c.Query("start_date"), c.Query("end_date"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "生成 Excel 失败")
	}
}

func cellBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}

func buildWorkbook(txs []models.Transaction) *excelize.File {
	f := excelize.NewFile()
	sheet := "交易记录"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})

	f.SetColWidth(sheet, "A", "B", 10)
	f.SetColWidth(sheet, "C", "D", 14)
	f.SetColWidth(sheet, "E", "E", 30)
	f.SetColWidth(sheet, "F", "F", 14)

	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	income, expense := decimal.Zero, decimal.Zero
	for i, t := range txs {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), t.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), typeName(t.Type))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), t.Amount.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), t.Category)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), t.Description)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), t.Date.Format(dateLayout))
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), dataStyle)
		if t.Type == models.TransactionIncome {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}

	summaryRow := len(txs) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "合计")
	f.MergeCell(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("B%d", summaryRow))
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), income.Sub(expense).InexactFloat64())
	f.SetCellValue(sheet, fmt.Sprintf("D%d", summaryRow),
		fmt.Sprintf("收入 %s，支出 %s，共 %d 条记录", income.StringFixed(2), expense.StringFixed(2), len(txs)))
	f.MergeCell(sheet, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("F%d", summaryRow))
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("F%d", summaryRow), summaryStyle)
	return f
}
